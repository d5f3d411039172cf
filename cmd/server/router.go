package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BerndBr/taskana/internal/infrastructure"
	"github.com/BerndBr/taskana/pkg/module"
)

func respondStatus(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": value})
}

// buildRouter registers the operational endpoints served outside the API module.
func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.Handle(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondStatus(w, http.StatusOK, "ok")
	})

	router.Handle(http.MethodGet, "/readyz", func(w http.ResponseWriter, r *http.Request) {
		if pending := infra.Lifecycle.Pending(); len(pending) > 0 {
			respondStatus(w, http.StatusServiceUnavailable, "waiting on "+strings.Join(pending, ", "))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := infra.Database.Check(ctx); err != nil {
			infra.Logger.Warn("readiness check failed", "error", err)
			respondStatus(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}

		respondStatus(w, http.StatusOK, "ready")
	})

	metrics := promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{Registry: infra.Metrics})
	router.Handle(http.MethodGet, "/metrics", metrics.ServeHTTP)

	return router
}
