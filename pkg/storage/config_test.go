package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerndBr/taskana/pkg/storage"
)

func TestFinalize(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
		env  map[string]string
		want storage.Config
	}{
		{
			name: "disabled defaults",
			want: storage.Config{ContainerName: "classification-imports", Prefix: "imports"},
		},
		{
			name: "env enables and overrides",
			env: map[string]string{
				"TEST_STORAGE_ENABLED": "true",
				"TEST_CONTAINER":       "archive",
				"TEST_CONN":            "override-connection",
			},
			want: storage.Config{Enabled: true, ContainerName: "archive", ConnectionString: "override-connection", Prefix: "imports"},
		},
		{
			name: "malformed enabled ignored",
			cfg:  storage.Config{Enabled: true, ConnectionString: "conn"},
			env:  map[string]string{"TEST_STORAGE_ENABLED": "sometimes"},
			want: storage.Config{Enabled: true, ContainerName: "classification-imports", ConnectionString: "conn", Prefix: "imports"},
		},
	}

	env := &storage.Env{
		Enabled:          "TEST_STORAGE_ENABLED",
		ContainerName:    "TEST_CONTAINER",
		ConnectionString: "TEST_CONN",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := tt.cfg
			require.NoError(t, cfg.Finalize(env))
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestFinalizeRejects(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"enabled without connection string", storage.Config{Enabled: true, ContainerName: "c"}, "connection_string required"},
		{"traversal prefix", storage.Config{Prefix: "../up"}, "invalid path segment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.cfg.Finalize(nil), tt.wantErr)
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{ContainerName: "classification-imports", ConnectionString: "base-conn"}
	base.Merge(&storage.Config{Enabled: true, ConnectionString: "overlay-conn"})

	assert.Equal(t, storage.Config{Enabled: true, ContainerName: "classification-imports", ConnectionString: "overlay-conn"}, base)
}
