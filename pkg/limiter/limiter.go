// Package limiter bounds the number of concurrently running heavy operations.
// Callers that cannot get a slot within the configured wait receive ErrBusy.
package limiter

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when no slot frees up within the wait window.
var ErrBusy = errors.New("too many concurrent operations, try again later")

const (
	DefaultMaxConcurrent = 4
	DefaultMaxWait       = 30 * time.Second
)

// Limiter is a weighted semaphore with a bounded acquire wait.
type Limiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// New creates a Limiter admitting at most maxConcurrent holders.
// Non-positive arguments fall back to the package defaults.
func New(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, ctx is done, or the wait window elapses.
// On success the caller must invoke the returned release func exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBusy
	}

	l.active.Add(1)
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			l.active.Add(-1)
			l.sem.Release(1)
		}
	}, nil
}

// Active returns the number of slots currently held.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the maximum number of concurrent holders.
func (l *Limiter) Capacity() int {
	return int(l.max)
}

// Drain waits until every slot is released or ctx is done.
func (l *Limiter) Drain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.max); err != nil {
		return err
	}
	l.sem.Release(l.max)
	return nil
}
