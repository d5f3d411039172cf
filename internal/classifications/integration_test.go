//go:build integration

package classifications_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/BerndBr/taskana/internal/classifications"
	"github.com/BerndBr/taskana/migrations"
	"github.com/BerndBr/taskana/pkg/cache"
	"github.com/BerndBr/taskana/pkg/events"
	"github.com/BerndBr/taskana/pkg/limiter"
	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/storage"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("taskana"),
		tcpostgres.WithUsername("taskana"),
		tcpostgres.WithPassword("taskana"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Up(dsn))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newPostgresSystem(t *testing.T, db *sql.DB) (classifications.System, *events.Memory) {
	t.Helper()
	ev := events.NewMemory()
	sys := classifications.New(
		db,
		classifications.NewEngine(classifications.DefaultRules()),
		limiter.New(4, 10*time.Second),
		cache.NewMemory(),
		ev,
		storage.Noop(),
		classifications.NewMetrics(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
	return sys, ev
}

func TestPostgresImportExport(t *testing.T) {
	db := startPostgres(t)
	sys, ev := newPostgresSystem(t, db)
	ctx := context.Background()

	batch := []classifications.Record{
		{Key: "L11010", Domain: "DOMAIN_A", ParentKey: "L10000", Name: "child"},
		{Key: "L10000", Domain: "DOMAIN_A", Name: "root"},
		{Key: "T2000", Domain: "DOMAIN_B", Type: classifications.TypeDocument},
	}

	result, err := sys.Import(ctx, batch, classifications.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Len(t, ev.Messages(), 1)

	root, err := sys.FindByKey(ctx, "L10000", "DOMAIN_A")
	require.NoError(t, err)
	child, err := sys.FindByKey(ctx, "L11010", "DOMAIN_A")
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.ParentID)
	assert.Equal(t, "L10000", child.ParentKey)

	exp, err := sys.Export(ctx, "DOMAIN_A")
	require.NoError(t, err)
	require.Len(t, exp.Classifications, 2)

	again, err := sys.Import(ctx, exp.Records(), classifications.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 2, again.Updated)

	after, err := sys.Export(ctx, "DOMAIN_A")
	require.NoError(t, err)
	for i := range exp.Classifications {
		assert.Equal(t, exp.Classifications[i].ID, after.Classifications[i].ID)
		assert.Equal(t, exp.Classifications[i].ParentID, after.Classifications[i].ParentID)
	}
}

func TestPostgresFailedImportLeavesNoTrace(t *testing.T) {
	db := startPostgres(t)
	sys, ev := newPostgresSystem(t, db)
	ctx := context.Background()

	_, err := sys.Import(ctx, []classifications.Record{
		{Key: "OK", Domain: "DOMAIN_A"},
		{Key: "ORPHAN", Domain: "DOMAIN_A", ParentKey: "MISSING"},
	}, classifications.ImportOptions{})
	require.ErrorIs(t, err, classifications.ErrValidation)

	exp, err := sys.Export(ctx, "DOMAIN_A")
	require.NoError(t, err)
	assert.Empty(t, exp.Classifications)
	assert.Empty(t, ev.Messages())
}

func TestPostgresConcurrentImportsOfOneDomain(t *testing.T) {
	db := startPostgres(t)
	sys, _ := newPostgresSystem(t, db)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = sys.Import(ctx, []classifications.Record{{Key: "SHARED", Domain: "DOMAIN_A"}}, classifications.ImportOptions{})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	exp, err := sys.Export(ctx, "DOMAIN_A")
	require.NoError(t, err)
	assert.Len(t, exp.Classifications, 1)
}
