package api

import (
	"context"

	"github.com/BerndBr/taskana/internal/classifications"
	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/internal/infrastructure"
	"github.com/BerndBr/taskana/pkg/limiter"
	"github.com/BerndBr/taskana/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// shared classification import machinery.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Engine     *classifications.Engine
	Imports    *limiter.Limiter
	Metrics    *classifications.Metrics
}

// NewRuntime creates an API runtime with a module-scoped logger. Imports
// still running at shutdown are drained before the database closes.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	c := cfg.Classifications
	imports := limiter.New(c.ImportConcurrency, c.ImportWaitDuration())

	rt := &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Cache:     infra.Cache,
			Events:    infra.Events,
			Metrics:   infra.Metrics,
		},
		Pagination: cfg.API.Pagination,
		Engine: classifications.NewEngine(classifications.Rules{
			AllowedTypes:    c.AllowedTypes,
			DefaultType:     c.DefaultType,
			DefaultCategory: c.DefaultCategory,
		}),
		Imports: imports,
		Metrics: classifications.NewMetrics(infra.Metrics),
	}

	infra.Lifecycle.OnShutdown(func() {
		<-infra.Lifecycle.Context().Done()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
		defer cancel()
		if err := imports.Drain(ctx); err != nil {
			rt.Logger.Warn("imports still running at shutdown", "active", imports.Active(), "error", err)
		}
	})

	return rt
}
