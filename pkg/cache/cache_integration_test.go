//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/BerndBr/taskana/pkg/cache"
)

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sys := cache.NewWithClient(redis.NewClient(opts), "test", time.Minute, logger)

	require.NoError(t, sys.Set(ctx, "export:DOMAIN_A", []byte(`{"classifications":[]}`)))

	got, ok, err := sys.Get(ctx, "export:DOMAIN_A")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"classifications":[]}`, string(got))

	require.NoError(t, sys.Delete(ctx, "export:DOMAIN_A", "export:missing"))

	_, ok, err = sys.Get(ctx, "export:DOMAIN_A")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := sys.Incr(ctx, "generation:DOMAIN_A")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, ok, err = sys.Get(ctx, "generation:DOMAIN_A")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(got))
}
