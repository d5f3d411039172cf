package classifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/BerndBr/taskana/pkg/formatting"
	"github.com/BerndBr/taskana/pkg/handlers"
	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/routes"
)

var ErrTooLarge = errors.New("import document exceeds upload limit")

// Handler serves classification reads and the definition import/export
// endpoints. Every error is rendered through MapHTTPStatus.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest is the JSON body of POST /classifications/search.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

func NewHandler(sys System, logger *slog.Logger, pages pagination.Config, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "classifications"),
		pagination:    pages,
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/classifications",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.List},
					{Method: "POST", Pattern: "/search", Handler: h.Search},
					{Method: "GET", Pattern: "/key/{key}", Handler: h.FindByKey},
					{Method: "GET", Pattern: "/{id}", Handler: h.Find},
				},
			},
			{
				Prefix: "/classification-definitions",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.Export},
					{Method: "POST", Pattern: "", Handler: h.Import},
				},
			},
		},
	}
}

// List reads paging and filters from the query string.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := pagination.ValidateOrder(q); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	h.list(w, r, pagination.PageRequestFromQuery(q, h.pagination), FiltersFromQuery(q))
}

// Search is List with the criteria in a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("decode search request: %w", err))
		return
	}
	req.Normalize(h.pagination)
	h.list(w, r, req.PageRequest, req.Filters)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, page pagination.PageRequest, filters Filters) {
	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single classification by its id path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	c, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// FindByKey returns a single classification by key path parameter and domain query parameter.
func (h *Handler) FindByKey(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			&ValidationError{Reason: "domain query parameter is required", Key: r.PathValue("key")})
		return
	}

	c, err := h.sys.FindByKey(r.Context(), r.PathValue("key"), domain)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// Export returns the classification definitions of the domain query
// parameter, or of all domains when it is omitted.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.sys.Export(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, exp)
}

// Import applies an import document sent as the multipart field "file" or
// as the request body. Query parameters absent=invalidate and dry_run=true
// select the absent-record policy and a rolled-back preview. A committed
// import responds 204; a dry run responds 200 with the would-be result.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	absent, err := ParseAbsentPolicy(q.Get("absent"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	dryRun := false
	if v := q.Get("dry_run"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest,
				&ValidationError{Reason: "dry_run must be a boolean"})
			return
		}
	}

	content, format, err := h.readDocument(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	batch, err := DecodeDefinitions(content, format)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.Import(r.Context(), batch, ImportOptions{Absent: absent, DryRun: dryRun})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if dryRun {
		handlers.RespondJSON(w, http.StatusOK, result)
		return
	}
	handlers.RespondNoContent(w)
}

func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, formatting.Format, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return nil, "", uploadError(err)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", &ValidationError{Reason: "multipart field \"file\" is required"}
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return content, formatting.FormatFromPath(header.Filename), nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", uploadError(err)
	}

	format := formatting.FormatJSON
	if strings.Contains(mediaType, "yaml") {
		format = formatting.FormatYAML
	}
	return content, format, nil
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w of %s", ErrTooLarge, formatting.FormatBytes(maxErr.Limit, 1))
	}
	return &ValidationError{Reason: "read import document: " + err.Error()}
}
