package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BerndBr/taskana/internal/classifications"
	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/internal/infrastructure"
	"github.com/BerndBr/taskana/pkg/formatting"
	"github.com/BerndBr/taskana/pkg/limiter"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "taskana",
		Short:        "Manage Taskana classification definitions",
		SilenceUsage: true,
	}

	root.AddCommand(
		newImportCmd(),
		newExportCmd(),
		newValidateCmd(),
	)
	return root
}

// session is a started infrastructure with a classification system on top.
type session struct {
	infra *infrastructure.Infrastructure
	sys   classifications.System
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := infra.Lifecycle.AwaitStartup(ctx); err != nil {
		_ = infra.Lifecycle.Shutdown(shutdownTimeout)
		return nil, err
	}

	c := cfg.Classifications
	engine := classifications.NewEngine(rules(&c))

	sys := classifications.New(
		infra.Database.Connection(),
		engine,
		limiter.New(1, c.ImportWaitDuration()),
		infra.Cache,
		infra.Events,
		infra.Storage,
		classifications.NewMetrics(infra.Metrics),
		infra.Logger,
		cfg.API.Pagination,
	)

	return &session{infra: infra, sys: sys}, nil
}

func (s *session) close() {
	if err := s.infra.Lifecycle.Shutdown(shutdownTimeout); err != nil {
		s.infra.Logger.Warn("shutdown incomplete", "error", err)
	}
}

// readDefinitions decodes an import document, choosing the format from the
// file extension.
func readDefinitions(path string) ([]classifications.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return classifications.DecodeDefinitions(content, formatting.FormatFromPath(path))
}

func writeJSON(cmd *cobra.Command, v any) error {
	b, err := formatting.Marshal(v, formatting.FormatJSON)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func rules(c *config.ClassificationsConfig) classifications.Rules {
	return classifications.Rules{
		AllowedTypes:    c.AllowedTypes,
		DefaultType:     c.DefaultType,
		DefaultCategory: c.DefaultCategory,
	}
}
