// Package logging configures log/slog handlers and derives request-scoped loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/BerndBr/taskana/pkg/env"
)

// Config holds logging level and output format.
type Config struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Level  string
	Format string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(vars *Env) error {
	c.loadDefaults()
	if vars != nil {
		c.loadEnv(vars)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

func (c *Config) loadDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

func (c *Config) loadEnv(vars *Env) {
	env.String(vars.Level, &c.Level)
	env.String(vars.Format, &c.Format)
}

func (c *Config) validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("invalid format: %s", c.Format)
}

// New creates a logger writing to stderr in the configured format.
func New(cfg *Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a logger writing to w in the configured format.
func NewWithWriter(cfg *Config, w io.Writer) *slog.Logger {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid level: %s", level)
}

// FromContext returns base enriched with the chi request id carried by ctx, if any.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return base.With("request_id", reqID)
	}
	return base
}
