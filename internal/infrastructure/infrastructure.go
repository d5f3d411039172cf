// Package infrastructure assembles the shared systems every domain package
// builds on. Both the HTTP server and the CLI start from here.
package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/pkg/cache"
	"github.com/BerndBr/taskana/pkg/database"
	"github.com/BerndBr/taskana/pkg/events"
	"github.com/BerndBr/taskana/pkg/lifecycle"
	"github.com/BerndBr/taskana/pkg/logging"
	"github.com/BerndBr/taskana/pkg/storage"
)

// Infrastructure holds the shared systems. Storage, Cache and Events are
// no-op implementations when disabled in config.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Cache     cache.System
	Events    events.System
	Metrics   *prometheus.Registry
}

// New builds every system without contacting any backend.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := logging.New(&cfg.Logging).With("version", cfg.Version)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	c, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	ev, err := events.New(&cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("events init failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.Connection(), cfg.Database.Name),
	)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Cache:     c,
		Events:    ev,
		Metrics:   registry,
	}, nil
}

// Start hands every system to the lifecycle coordinator. Startup hooks
// run concurrently once registered.
func (i *Infrastructure) Start() error {
	systems := []struct {
		name  string
		start func(*lifecycle.Coordinator) error
	}{
		{"database", i.Database.Start},
		{"storage", i.Storage.Start},
		{"cache", i.Cache.Start},
		{"events", i.Events.Start},
	}
	for _, s := range systems {
		if err := s.start(i.Lifecycle); err != nil {
			return fmt.Errorf("%s start failed: %w", s.name, err)
		}
	}
	return nil
}
