package accessitems

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BerndBr/taskana/pkg/handlers"
	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/routes"
)

// Handler provides HTTP endpoints for workbasket access items.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "accessitems"),
		pagination: pagination,
	}
}

// Routes returns the route group for access item endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/workbasket-access-items",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "DELETE", Pattern: "", Handler: h.Delete},
		},
	}
}

// List returns a page of access items filtered by access-id and workbasket-key.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if err := ValidateQuery(values); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page := pagination.PageRequestFromQuery(values, h.pagination)
	result, err := h.sys.List(r.Context(), page, FiltersFromQuery(values))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Delete removes every access item of the access-id query parameter.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	accessID := r.URL.Query().Get("access-id")
	if accessID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: access-id is required", ErrInvalidParams))
		return
	}

	if _, err := h.sys.DeleteByAccessID(r.Context(), accessID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondNoContent(w)
}
