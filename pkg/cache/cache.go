// Package cache provides a byte-oriented key/value cache backed by Redis,
// with a no-op implementation for deployments that run without one.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BerndBr/taskana/pkg/lifecycle"
)

// System stores serialized values under namespaced keys.
type System interface {
	// Start registers a startup ping and a shutdown close with the coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Get returns the value at key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value at key with the configured TTL.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Incr atomically increments the counter at key and returns the new
	// value. Counters never expire; a missing counter starts at zero.
	Incr(ctx context.Context, key string) (int64, error)
}

type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a cache system from cfg. A disabled config yields a no-op cache.
// The Redis client is created eagerly but not contacted until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = duration(cfg.DialTimeout)
	opts.ReadTimeout = duration(cfg.ReadTimeout)
	opts.WriteTimeout = duration(cfg.WriteTimeout)

	return NewWithClient(redis.NewClient(opts), cfg.KeyPrefix, cfg.TTLDuration(), logger), nil
}

// NewWithClient wraps an existing go-redis client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) System {
	return &redisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("system", "cache"),
	}
}

func (c *redisCache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection")

	lc.OnStartup(func() {
		if err := c.client.Ping(lc.Context()).Err(); err != nil {
			c.logger.Error("cache ping failed", "error", err)
			return
		}
		c.logger.Info("cache connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}
		c.logger.Info("cache connection closed")
	})

	return nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return b, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *redisCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr %s: %w", key, err)
	}
	return n, nil
}

func (c *redisCache) key(k string) string {
	return c.prefix + ":" + k
}

type noop struct{}

// Noop returns a cache that stores nothing.
func Noop() System {
	return noop{}
}

func (noop) Start(*lifecycle.Coordinator) error { return nil }
func (noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noop) Set(context.Context, string, []byte) error { return nil }
func (noop) Delete(context.Context, ...string) error { return nil }
func (noop) Incr(context.Context, string) (int64, error) { return 0, nil }

// Memory is an unbounded in-process cache without expiry. Used by tests and offline tooling.
type Memory struct {
	mu    sync.Mutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Start(*lifecycle.Coordinator) error { return nil }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[key]
	return b, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// Incr stores counters as decimal strings, as Redis does.
func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if b, ok := m.items[key]; ok {
		v, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache incr %s: value is not an integer", key)
		}
		n = v
	}
	n++
	m.items[key] = strconv.AppendInt(nil, n, 10)
	return n, nil
}

// Keys returns a snapshot of the stored keys.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.items))
}
