package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/BerndBr/taskana/pkg/env"
)

// CORSConfig is the cross-origin policy of the API. An origin of "*"
// admits every origin.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	ExposedHeaders   []string `toml:"exposed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv names the environment variables that override CORSConfig.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	ExposedHeaders   string
	AllowCredentials string
	MaxAge           string
}

func (c *CORSConfig) Finalize(vars *CORSEnv) error {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Content-Type", "X-Request-Id"}
	}
	if len(c.ExposedHeaders) == 0 {
		c.ExposedHeaders = []string{"Content-Disposition", "X-Request-Id"}
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}

	if vars != nil {
		env.Bool(vars.Enabled, &c.Enabled)
		env.List(vars.Origins, &c.Origins)
		env.List(vars.AllowedMethods, &c.AllowedMethods)
		env.List(vars.AllowedHeaders, &c.AllowedHeaders)
		env.List(vars.ExposedHeaders, &c.ExposedHeaders)
		env.Bool(vars.AllowCredentials, &c.AllowCredentials)
		env.Int(vars.MaxAge, &c.MaxAge)
	}
	return nil
}

// Merge applies overlay. Booleans always apply; lists apply when set and
// MaxAge when positive.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	for _, f := range []struct{ dst, src *[]string }{
		{&c.Origins, &overlay.Origins},
		{&c.AllowedMethods, &overlay.AllowedMethods},
		{&c.AllowedHeaders, &overlay.AllowedHeaders},
		{&c.ExposedHeaders, &overlay.ExposedHeaders},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

func (c *CORSConfig) allows(origin string) bool {
	return origin != "" && (slices.Contains(c.Origins, "*") || slices.Contains(c.Origins, origin))
}

// CORS applies cfg to every response. Preflight requests are answered
// directly and never reach next.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || len(cfg.Origins) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")

			if cfg.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
