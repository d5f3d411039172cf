// Package handlers holds the JSON response helpers shared by the domain
// HTTP handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError logs err, at Error for 5xx and Warn otherwise, and writes it
// as an ErrorResponse.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, http.StatusText(status), "status", status, "error", err)
	RespondJSON(w, status, ErrorResponse{Error: err.Error()})
}

func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
