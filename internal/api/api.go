// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/internal/infrastructure"
	"github.com/BerndBr/taskana/pkg/middleware"
	"github.com/BerndBr/taskana/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Middleware runs in registration order: request id, panic recovery, CORS,
// rate limiting, then request logging.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	limiter := middleware.NewRateLimiter(&cfg.API.RateLimit)
	limiter.Start(infra.Lifecycle)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(limiter.Middleware)
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
