package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerndBr/taskana/pkg/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func corsRequest(t *testing.T, cfg *middleware.CORSConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/classifications/export", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	middleware.CORS(cfg)(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestCORSHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cfg    middleware.CORSConfig
		origin string
		want   map[string]string
	}{
		{
			name:   "disabled",
			cfg:    middleware.CORSConfig{Origins: []string{"http://example.com"}},
			origin: "http://example.com",
			want:   map[string]string{"Access-Control-Allow-Origin": "", "Vary": ""},
		},
		{
			name: "listed origin",
			cfg: middleware.CORSConfig{
				Enabled:        true,
				Origins:        []string{"http://example.com"},
				AllowedMethods: []string{"GET", "POST"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         3600,
			},
			origin: "http://example.com",
			want: map[string]string{
				"Access-Control-Allow-Origin":      "http://example.com",
				"Access-Control-Allow-Methods":     "GET, POST",
				"Access-Control-Max-Age":           "3600",
				"Access-Control-Allow-Credentials": "",
				"Vary":                             "Origin",
			},
		},
		{
			name:   "unlisted origin",
			cfg:    middleware.CORSConfig{Enabled: true, Origins: []string{"http://allowed.com"}},
			origin: "http://denied.com",
			want:   map[string]string{"Access-Control-Allow-Origin": "", "Vary": "Origin"},
		},
		{
			name:   "credentials",
			cfg:    middleware.CORSConfig{Enabled: true, Origins: []string{"http://example.com"}, AllowCredentials: true},
			origin: "http://example.com",
			want:   map[string]string{"Access-Control-Allow-Credentials": "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := corsRequest(t, &tt.cfg, http.MethodGet, tt.origin)
			assert.Equal(t, http.StatusOK, rec.Code)
			for header, want := range tt.want {
				assert.Equal(t, want, rec.Header().Get(header), header)
			}
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://example.com"}}

	called := false
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
}

func TestCORSWildcardExposesHeaders(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"*"}}
	require.NoError(t, cfg.Finalize(nil))

	rec := corsRequest(t, cfg, http.MethodGet, "http://anywhere.example")

	assert.Equal(t, "http://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg middleware.CORSConfig
		require.NoError(t, cfg.Finalize(nil))

		assert.Equal(t, []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"}, cfg.AllowedMethods)
		assert.Equal(t, []string{"Content-Type", "X-Request-Id"}, cfg.AllowedHeaders)
		assert.Equal(t, []string{"Content-Disposition", "X-Request-Id"}, cfg.ExposedHeaders)
		assert.Equal(t, 3600, cfg.MaxAge)
		assert.False(t, cfg.Enabled)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_CORS_ENABLED", "true")
		t.Setenv("TEST_CORS_ORIGINS", "http://a.com, ,http://b.com")
		t.Setenv("TEST_CORS_CREDS", "true")
		t.Setenv("TEST_CORS_MAX_AGE", "often")

		var cfg middleware.CORSConfig
		require.NoError(t, cfg.Finalize(&middleware.CORSEnv{
			Enabled:          "TEST_CORS_ENABLED",
			Origins:          "TEST_CORS_ORIGINS",
			AllowCredentials: "TEST_CORS_CREDS",
			MaxAge:           "TEST_CORS_MAX_AGE",
		}))

		assert.True(t, cfg.Enabled)
		assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Origins)
		assert.True(t, cfg.AllowCredentials)
		assert.Equal(t, 3600, cfg.MaxAge, "malformed override is ignored")
	})
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Origins:        []string{"http://base.com"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}
	base.Merge(&middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://overlay.com"},
		MaxAge:  7200,
	})

	assert.True(t, base.Enabled)
	assert.Equal(t, []string{"http://overlay.com"}, base.Origins)
	assert.Equal(t, []string{"GET"}, base.AllowedMethods)
	assert.Equal(t, 7200, base.MaxAge)
}
