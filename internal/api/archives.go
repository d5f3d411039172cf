package api

import (
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/BerndBr/taskana/pkg/handlers"
	"github.com/BerndBr/taskana/pkg/routes"
	"github.com/BerndBr/taskana/pkg/storage"
)

// archiveHandler serves the canonical import documents archived after
// each committed classification import.
type archiveHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newArchiveHandler(store storage.System, logger *slog.Logger) *archiveHandler {
	return &archiveHandler{
		store:  store,
		logger: logger.With("handler", "archives"),
	}
}

func (h *archiveHandler) routes() routes.Group {
	return routes.Group{
		Prefix:     "/import-archives",
		Middleware: []func(http.Handler) http.Handler{immutable},
		Routes: []routes.Route{
			{Method: "HEAD", Pattern: "/{key...}", Handler: h.exists},
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
			{Method: "DELETE", Pattern: "/{key...}", Handler: h.remove},
		},
	}
}

// immutable marks reads as permanently cacheable. Archive keys embed the
// digest of their content.
func immutable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
		}
		next.ServeHTTP(w, r)
	})
}

func (h *archiveHandler) exists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.store.Exists(r.Context(), r.PathValue("key"))
	if err != nil {
		w.WriteHeader(storage.MapHTTPStatus(err))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *archiveHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+path.Base(key)+"\"")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("archive stream interrupted", "key", key, "error", err)
	}
}

// remove purges one archived document. Committed classifications are
// unaffected.
func (h *archiveHandler) remove(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := h.store.Delete(r.Context(), key); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	h.logger.Info("archive removed", "key", key)
	handlers.RespondNoContent(w)
}
