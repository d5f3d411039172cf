// Package database owns the PostgreSQL pool shared by the repositories and
// reports its readiness to the lifecycle coordinator.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/BerndBr/taskana/pkg/lifecycle"
)

var ErrNotReady = errors.New("database not ready")

const maxRetryDelay = 5 * time.Second

type System interface {
	Connection() *sql.DB
	// Start pings until the database answers or the coordinator shuts
	// down, and closes the pool on shutdown.
	Start(lc *lifecycle.Coordinator) error
	Ready() bool
	// Check pings once, wrapping any failure in ErrNotReady.
	Check(ctx context.Context) error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	ready       atomic.Bool
}

// New configures the pool. sql.Open does not dial, so an unreachable
// server surfaces on Start or Check, not here.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB { return d.conn }

func (d *database) Ready() bool { return d.ready.Load() }

func (d *database) Check(ctx context.Context) error {
	if err := d.ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.Track("database", d)

	lc.OnStartup(func() {
		if err := d.awaitServer(lc.Context()); err != nil {
			d.logger.Error("database never became reachable", "error", err)
			return
		}
		d.ready.Store(true)
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database connection closed")
	})

	return nil
}

// awaitServer retries the ping with doubling delays until it succeeds or
// ctx ends.
func (d *database) awaitServer(ctx context.Context) error {
	delay := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := d.ping(ctx)
		if err == nil {
			return nil
		}
		d.logger.Warn("database ping failed", "attempt", attempt, "retry_in", delay, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (d *database) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()
	return d.conn.PingContext(ctx)
}
