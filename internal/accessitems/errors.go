package accessitems

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("access item not found")
	ErrDuplicate     = errors.New("access item already exists")
	ErrInvalidParams = errors.New("invalid request parameters")
	ErrGroupAccessID = errors.New("access items of a group cannot be deleted in bulk")
)

// MapHTTPStatus maps access item errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidParams) || errors.Is(err, ErrGroupAccessID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
