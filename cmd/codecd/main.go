// Command codecd serves the codec operations over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/RowanDark/codecs/internal/cipher"
	"github.com/RowanDark/codecs/internal/config"
	"github.com/RowanDark/codecs/internal/logging"
	"github.com/RowanDark/codecs/internal/observability/metrics"
	"github.com/RowanDark/codecs/internal/rpc"
)

var version = "dev"

func main() {
	addr := flag.String("addr", "", "address for the gRPC server to listen on (overrides listen_addr)")
	token := flag.String("token", "", "authentication token required from clients (overrides auth_token)")
	maxConns := flag.Int("max-conns", -1, "maximum concurrent connections, 0 for no limit (overrides max_conns)")
	recipesDir := flag.String("recipes-dir", "", "directory of saved recipes (overrides recipes_dir)")
	auditLog := flag.String("audit-log", "", "append audit events to this file as well as stdout (overrides audit_log)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides log_level)")
	metricsAddr := flag.String("metrics-addr", "", "address for the Prometheus metrics endpoint (overrides metrics_addr; empty disables)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("codecd %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *token != "" {
		cfg.AuthToken = *token
	}
	if *maxConns >= 0 {
		cfg.MaxConns = *maxConns
	}
	if *recipesDir != "" {
		cfg.RecipesDir = *recipesDir
	}
	if *auditLog != "" {
		cfg.AuditLog = *auditLog
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "codecd: %v\n", err)
		os.Exit(1)
	}
}

// run wires logging, recipes and the listener for cfg and blocks until ctx
// is cancelled.
func run(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.Level()}))

	var auditOpts []logging.Option
	if cfg.AuditLog != "" {
		auditOpts = append(auditOpts, logging.WithFile(cfg.AuditLog))
	}
	audit, err := logging.NewAuditLogger("codecd", auditOpts...)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			logger.Warn("close audit log", "error", err)
		}
	}()

	recipes := cipher.NewRecipeManager(cfg.RecipesDir)
	if err := recipes.LoadRecipes(); err != nil {
		return err
	}
	logger.Info("recipes loaded", "dir", cfg.RecipesDir, "count", len(recipes.ListRecipes()))

	if cfg.MetricsAddr != "" {
		metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddr, err)
		}
		defer serveMetrics(metricsLis, logger, audit)()
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	return serve(ctx, lis, cfg, logger, audit, recipes)
}

func serve(ctx context.Context, lis net.Listener, cfg config.Config, logger *slog.Logger, audit *logging.AuditLogger, recipes *cipher.RecipeManager) error {
	if cfg.AuthToken == "" {
		logger.Warn("no auth token configured; every client is accepted")
	}
	srv := rpc.NewServer(
		rpc.WithLogger(logger),
		rpc.WithAuditLogger(audit.WithComponent("rpc")),
		rpc.WithRecipes(recipes),
		rpc.WithAuthToken(cfg.AuthToken),
		rpc.WithMaxConns(cfg.MaxConns),
	)
	if err := srv.Serve(ctx, lis); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// serveMetrics exposes /metrics on lis until the returned stop is called.
func serveMetrics(lis net.Listener, logger *slog.Logger, audit *logging.AuditLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", lis.Addr().String())
	if err := audit.Emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"state": "metrics_ready", "addr": lis.Addr().String()},
	}); err != nil {
		logger.Warn("audit emit failed", "error", err)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics shutdown", "error", err)
		}
	}
}
