package limiter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerndBr/taskana/pkg/limiter"
)

func TestAcquireRelease(t *testing.T) {
	l := limiter.New(2, time.Second)

	r1, err := l.Acquire(context.Background())
	require.NoError(t, err)
	r2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Active())

	r1()
	r1()
	assert.Equal(t, 1, l.Active(), "double release must be a no-op")

	r2()
	assert.Equal(t, 0, l.Active())
}

func TestAcquireBusy(t *testing.T) {
	l := limiter.New(1, 20*time.Millisecond)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(context.Background())
	assert.True(t, errors.Is(err, limiter.ErrBusy), "got %v", err)
}

func TestAcquireCancelled(t *testing.T) {
	l := limiter.New(1, time.Minute)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaults(t *testing.T) {
	l := limiter.New(0, 0)
	assert.Equal(t, limiter.DefaultMaxConcurrent, l.Capacity())
}

func TestDrain(t *testing.T) {
	l := limiter.New(2, time.Second)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Drain(ctx))
	assert.Equal(t, 0, l.Active())
}
