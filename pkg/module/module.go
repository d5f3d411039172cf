// Package module mounts independently configured HTTP surfaces (the API,
// operational endpoints) under single-level path prefixes on a chi router.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Module serves an inner handler below a prefix. Requests reach the inner
// handler with the prefix removed, wrapped in the module's own middleware.
type Module struct {
	prefix     string
	inner      http.Handler
	middleware chi.Middlewares
}

// New creates a Module for a single-level prefix such as "/api".
// It panics on an empty, relative, or nested prefix.
func New(prefix string, inner http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, inner: inner}
}

// Prefix returns the mount prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware. The first registered runs outermost.
func (m *Module) Use(mw ...func(http.Handler) http.Handler) {
	m.middleware = append(m.middleware, mw...)
}

// Handler returns the module's middleware chain around the inner handler.
// The inner handler sees the path without the prefix or a trailing slash.
func (m *Module) Handler() http.Handler {
	return m.middleware.Handler(http.HandlerFunc(m.serve))
}

func (m *Module) serve(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, m.prefix)
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	m.inner.ServeHTTP(w, withPath(req, path))
}

func withPath(req *http.Request, path string) *http.Request {
	if path == "" {
		path = "/"
	}
	r := req.Clone(req.Context())
	r.URL.Path = path
	r.URL.RawPath = ""
	return r
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	}
	return nil
}
