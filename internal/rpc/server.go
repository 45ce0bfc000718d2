package rpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/codecs/internal/cipher"
	"github.com/RowanDark/codecs/internal/codecerr"
	"github.com/RowanDark/codecs/internal/logging"
	"github.com/RowanDark/codecs/internal/observability/metrics"
)

const authorizationKey = "authorization"

// Server implements the Codec service.
type Server struct {
	logger    *slog.Logger
	audit     *logging.AuditLogger
	recipes   *cipher.RecipeManager
	authToken string
	maxConns  int
	grpc      *grpc.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditLogger records every run, stream and denied call.
func WithAuditLogger(audit *logging.AuditLogger) Option {
	return func(s *Server) { s.audit = audit }
}

// WithRecipes lets callers run stored recipes by name.
func WithRecipes(rm *cipher.RecipeManager) Option {
	return func(s *Server) { s.recipes = rm }
}

// WithAuthToken requires every call to present token in its
// authorization metadata, optionally prefixed with "Bearer ".
func WithAuthToken(token string) Option {
	return func(s *Server) { s.authToken = strings.TrimSpace(token) }
}

// WithMaxConns caps concurrent connections accepted by Serve. Zero means
// no limit.
func WithMaxConns(n int) Option {
	return func(s *Server) { s.maxConns = n }
}

// NewServer creates a Codec server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.grpc = grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryMetrics, s.unaryAuth),
		grpc.ChainStreamInterceptor(streamMetrics, s.streamAuth),
	)
	RegisterCodecServer(s.grpc, s)
	return s
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully and returns nil.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	if s.maxConns > 0 {
		lis = netutil.LimitListener(lis, s.maxConns)
	}
	s.logger.Info("codec service listening", "addr", lis.Addr().String(), "max_conns", s.maxConns, "auth", s.authToken != "")
	s.emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"state": "listening", "addr": lis.Addr().String()},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("codec service shutting down")
		s.grpc.GracefulStop()
		<-errCh
		s.emit(logging.AuditEvent{
			EventType: logging.EventServerLifecycle,
			Decision:  logging.DecisionInfo,
			Metadata:  map[string]any{"state": "stopped"},
		})
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Execute runs the requested pipeline or recipe once. Keystream operations
// start from their first key byte or seed on every call.
func (s *Server) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := parseRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pipeline, label, err := s.resolve(req)
	if err != nil {
		return nil, statusError(err)
	}

	out, err := pipeline.Execute(ctx, req.input)
	metrics.RecordRun("execute", len(req.input), len(out), err)
	s.emit(logging.OperationEvent(peerAddr(ctx), label, pipelineParams(pipeline), len(req.input), len(out), err))
	if err != nil {
		s.logger.Debug("execute failed", "pipeline", label, "error", err)
		return nil, statusError(err)
	}
	return outputMessage(out)
}

// Stream serves one Session. The first message selects the pipeline and is
// answered with {ready, stream_id}; each later {input} is answered with
// {output}, and {reset:true} rewinds every keystream. A failed step ends
// the stream, since the keystream position is then unknown to the caller.
func (s *Server) Stream(stream grpc.ServerStream) error {
	ctx := stream.Context()
	first := new(structpb.Struct)
	if err := stream.RecvMsg(first); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	req, err := parseRequest(first)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	pipeline, label, err := s.resolve(req)
	if err != nil {
		return statusError(err)
	}
	session, err := pipeline.NewSession()
	if err != nil {
		return statusError(err)
	}

	id := uuid.NewString()
	addr := peerAddr(ctx)
	metrics.StreamOpened()
	defer metrics.StreamClosed()
	var messages, bytesIn, bytesOut int
	s.logger.Info("stream opened", "stream_id", id, "pipeline", label, "peer", addr)
	s.emit(logging.AuditEvent{
		EventType: logging.EventStreamOpened,
		Peer:      addr,
		Operation: label,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"stream_id": id, "parameters": pipelineParams(pipeline)},
	})
	defer func() {
		s.logger.Info("stream closed", "stream_id", id, "messages", messages)
		s.emit(logging.AuditEvent{
			EventType: logging.EventStreamClosed,
			Peer:      addr,
			Operation: label,
			Decision:  logging.DecisionInfo,
			Metadata: map[string]any{
				"stream_id": id,
				"messages":  messages,
				"bytes_in":  bytesIn,
				"bytes_out": bytesOut,
			},
		})
	}()

	ack, err := newMessage(map[string]any{fieldReady: true, fieldStreamID: id})
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := stream.SendMsg(ack); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		req, err := parseRequest(msg)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		if req.pipeline != nil || req.recipe != "" {
			return status.Error(codes.InvalidArgument, "pipeline is fixed once the stream is open")
		}

		if req.reset {
			if err := session.Reset(); err != nil {
				return statusError(err)
			}
			reply, err := newMessage(map[string]any{fieldReset: true})
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(reply); err != nil {
				return err
			}
			continue
		}
		if !req.hasInput {
			return status.Errorf(codes.InvalidArgument, "message needs %s or %s", fieldInput, fieldReset)
		}

		out, err := session.Process(ctx, req.input)
		metrics.RecordRun("stream", len(req.input), len(out), err)
		if err != nil {
			s.emit(logging.OperationEvent(addr, label, nil, len(req.input), 0, err))
			return statusError(err)
		}
		messages++
		bytesIn += len(req.input)
		bytesOut += len(out)

		reply, err := outputMessage(out)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.SendMsg(reply); err != nil {
			return err
		}
	}
}

// resolve turns a request into a pipeline and a label for logs.
func (s *Server) resolve(req request) (*cipher.Pipeline, string, error) {
	var pipeline *cipher.Pipeline
	label := ""
	switch {
	case req.recipe != "":
		if s.recipes == nil {
			return nil, "", fmt.Errorf("%w: %s", cipher.ErrRecipeNotFound, req.recipe)
		}
		recipe, ok := s.recipes.GetRecipe(req.recipe)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", cipher.ErrRecipeNotFound, req.recipe)
		}
		p := recipe.Pipeline
		pipeline = &p
		label = "recipe:" + recipe.Name
	case req.pipeline != nil:
		pipeline = req.pipeline
		label = describe(*pipeline)
	default:
		return nil, "", status.Errorf(codes.InvalidArgument, "request needs %s or %s", fieldPipeline, fieldRecipe)
	}

	if req.reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			return nil, "", err
		}
		pipeline = reversed
		label += " (reversed)"
	}
	return pipeline, label, nil
}

func describe(p cipher.Pipeline) string {
	names := make([]string, len(p.Operations))
	for i, op := range p.Operations {
		names[i] = op.Name
	}
	return strings.Join(names, ">")
}

// pipelineParams collects step parameters keyed by position so the audit
// trail shows which step was configured how, after redaction.
func pipelineParams(p *cipher.Pipeline) map[string]any {
	out := make(map[string]any)
	for i, op := range p.Operations {
		if len(op.Parameters) == 0 {
			continue
		}
		params := make(map[string]any, len(op.Parameters))
		for k, v := range op.Parameters {
			params[k] = v
		}
		out[fmt.Sprintf("%d:%s", i, op.Name)] = params
	}
	return out
}

func (s *Server) emit(event logging.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(event); err != nil {
		s.logger.Warn("audit emit failed", "event", event.EventType, "error", err)
	}
}

func unaryMetrics(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	metrics.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	return resp, err
}

func streamMetrics(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	metrics.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	return err
}

func (s *Server) unaryAuth(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if err := s.authorize(ctx, info.FullMethod); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *Server) streamAuth(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := s.authorize(ss.Context(), info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}

func (s *Server) authorize(ctx context.Context, method string) error {
	if s.authToken == "" {
		return nil
	}
	md, _ := metadata.FromIncomingContext(ctx)
	for _, value := range md.Get(authorizationKey) {
		presented := strings.TrimSpace(value)
		if len(presented) > 7 && strings.EqualFold(presented[:7], "bearer ") {
			presented = strings.TrimSpace(presented[7:])
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.authToken)) == 1 {
			return nil
		}
	}
	addr := peerAddr(ctx)
	s.logger.Warn("rejected unauthenticated call", "method", method, "peer", addr)
	s.emit(logging.AuditEvent{
		EventType: logging.EventAuthDenied,
		Peer:      addr,
		Decision:  logging.DecisionDeny,
		Reason:    "missing or invalid authorization metadata",
		Metadata:  map[string]any{"method": method},
	})
	return status.Error(codes.Unauthenticated, "invalid auth token")
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// statusError maps pipeline failures onto gRPC codes. Errors that already
// carry a status pass through unchanged.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, cipher.ErrUnknownOperation), errors.Is(err, cipher.ErrRecipeNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	if codecerr.KindOf(err) == codecerr.NotInitialized {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	// Everything else is a property of the request: a bad parameter, a
	// payload the codec rejects or a pipeline that cannot be reversed.
	return status.Error(codes.InvalidArgument, err.Error())
}
