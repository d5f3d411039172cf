package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/BerndBr/taskana/pkg/logging"
)

// Logger writes one record per request after the handler returns. The
// request id set by chi's RequestID middleware rides along when present.
// Server errors log at Error, client errors at Warn.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logging.FromContext(r.Context(), logger).Log(r.Context(), levelFor(status), "request",
				"method", r.Method,
				"uri", r.URL.RequestURI(),
				"status", status,
				"bytes", ww.BytesWritten(),
				"addr", r.RemoteAddr,
				"duration", time.Since(start),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
