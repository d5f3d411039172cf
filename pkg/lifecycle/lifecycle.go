// Package lifecycle coordinates startup hooks, readiness, and graceful
// shutdown of the long-lived systems in a process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdownTimeout is returned when shutdown hooks outlive the timeout.
var ErrShutdownTimeout = errors.New("shutdown timeout")

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator runs startup hooks, tracks readiness, and runs shutdown hooks
// once its context is cancelled.
type Coordinator struct {
	ctx      context.Context
	cancel   context.CancelFunc
	startup  sync.WaitGroup
	shutdown sync.WaitGroup
	started  atomic.Bool

	mu     sync.RWMutex
	checks map[string]ReadinessChecker
}

func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		checks: make(map[string]ReadinessChecker),
	}
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently with the other startup hooks.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// OnShutdown runs fn concurrently. Hooks block on <-Context().Done()
// before releasing their resources.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdown.Go(fn)
}

// Track adds a named readiness check consulted by Ready and Pending.
func (c *Coordinator) Track(name string, rc ReadinessChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = rc
}

// WaitForStartup blocks until every startup hook has returned.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
	c.started.Store(true)
}

// AwaitStartup is WaitForStartup bounded by ctx. The hooks keep running
// after ctx ends; only the wait is abandoned.
func (c *Coordinator) AwaitStartup(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.WaitForStartup()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("startup incomplete, waiting on %v: %w", c.Pending(), ctx.Err())
	}
}

// Ready reports whether startup finished and every tracked check passes.
func (c *Coordinator) Ready() bool {
	return len(c.Pending()) == 0
}

// Pending lists, sorted, what keeps the coordinator from being ready.
// "startup" stands for hooks still running.
func (c *Coordinator) Pending() []string {
	var pending []string
	if !c.started.Load() {
		pending = append(pending, "startup")
	}

	c.mu.RLock()
	for name, rc := range c.checks {
		if !rc.Ready() {
			pending = append(pending, name)
		}
	}
	c.mu.RUnlock()

	slices.Sort(pending)
	return pending
}

// Shutdown cancels the context and waits up to timeout for shutdown hooks.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.started.Store(false)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdown.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrShutdownTimeout, timeout)
	}
}
