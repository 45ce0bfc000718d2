// Package config resolves codecd and codecctl settings from defaults,
// configuration files and CODECS_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/codecs/internal/env"
	"github.com/RowanDark/codecs/internal/textcodec"
)

// Config captures the configuration resolved from defaults, optional files,
// and environment overrides.
type Config struct {
	ListenAddr  string `yaml:"listen_addr" toml:"listen_addr"`
	AuthToken   string `yaml:"auth_token" toml:"auth_token"`
	MaxConns    int    `yaml:"max_conns" toml:"max_conns"`
	RecipesDir  string `yaml:"recipes_dir" toml:"recipes_dir"`
	TextCodec   string `yaml:"text_codec" toml:"text_codec"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	AuditLog    string `yaml:"audit_log" toml:"audit_log"`
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
}

const (
	homeDirName   = ".codecs"
	homeFileName  = "config.toml"
	localFileName = "codecs.yml"
)

// Default returns the built-in configuration. RecipesDir is left empty and
// filled in by Load once the home directory is known.
func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:7443",
		MaxConns:   64,
		TextCodec:  textcodec.Default,
		LogLevel:   "info",
	}
}

// Load resolves the configuration. The lookup order for configuration
// files is:
//  1. ~/.codecs/config.toml (TOML)
//  2. ./codecs.yml (YAML)
//
// Environment variables prefixed with CODECS_ have the highest precedence.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	return load(home, wd)
}

func load(home, wd string) (Config, error) {
	cfg := Default()

	if home != "" {
		cfg.RecipesDir = filepath.Join(home, homeDirName, "recipes")
		if err := loadFile(&cfg, filepath.Join(home, homeDirName, homeFileName), "toml"); err != nil {
			return Config{}, err
		}
	}
	if err := loadFile(&cfg, filepath.Join(wd, localFileName), "yaml"); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig uses pointers so a file only overrides the keys it sets.
type fileConfig struct {
	ListenAddr  *string `yaml:"listen_addr" toml:"listen_addr"`
	AuthToken   *string `yaml:"auth_token" toml:"auth_token"`
	MaxConns    *int    `yaml:"max_conns" toml:"max_conns"`
	RecipesDir  *string `yaml:"recipes_dir" toml:"recipes_dir"`
	TextCodec   *string `yaml:"text_codec" toml:"text_codec"`
	LogLevel    *string `yaml:"log_level" toml:"log_level"`
	AuditLog    *string `yaml:"audit_log" toml:"audit_log"`
	MetricsAddr *string `yaml:"metrics_addr" toml:"metrics_addr"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case "toml":
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.AuthToken, fc.AuthToken)
	setString(&cfg.RecipesDir, fc.RecipesDir)
	setString(&cfg.TextCodec, fc.TextCodec)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.AuditLog, fc.AuditLog)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	if fc.MaxConns != nil {
		cfg.MaxConns = *fc.MaxConns
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := lookup("listen_addr", "CODECD_ADDR"); ok {
		cfg.ListenAddr = val
	}
	if val, ok := lookup("auth_token", "CODECD_TOKEN"); ok {
		cfg.AuthToken = val
	}
	if val, ok := lookup("max_conns"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", env.Key("max_conns"), val)
		}
		cfg.MaxConns = n
	}
	if val, ok := lookup("recipes_dir"); ok {
		cfg.RecipesDir = val
	}
	if val, ok := lookup("text_codec"); ok {
		cfg.TextCodec = val
	}
	if val, ok := lookup("log_level"); ok {
		cfg.LogLevel = val
	}
	if val, ok := lookup("audit_log"); ok {
		cfg.AuditLog = val
	}
	if val, ok := lookup("metrics_addr"); ok {
		cfg.MetricsAddr = val
	}
	return nil
}

// lookup ignores variables that are set but blank.
func lookup(name string, legacy ...string) (string, bool) {
	val, ok := env.Lookup(name, legacy...)
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen_addr cannot be empty")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must not be negative, got %d", c.MaxConns)
	}
	if err := textcodec.Validate(c.TextCodec); err != nil {
		return fmt.Errorf("text_codec: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns LogLevel as a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
