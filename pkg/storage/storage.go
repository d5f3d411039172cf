// Package storage archives documents in Azure Blob Storage under
// slash-separated keys.
package storage

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks System

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/BerndBr/taskana/pkg/lifecycle"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrEmptyKey   = errors.New("storage key must not be empty")
	ErrInvalidKey = errors.New("storage key must be relative and free of traversal segments")
)

// System stores blobs by key. Every method rejects keys that fail
// ValidateKey before touching the backend.
type System interface {
	// Start ensures the container exists once the coordinator starts up.
	Start(lc *lifecycle.Coordinator) error
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns ErrNotFound for a missing blob. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete returns ErrNotFound for a missing blob.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ValidateKey accepts slash-separated relative keys such as
// "2026/03/14/<digest>.json".
func ValidateKey(key string) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case strings.HasPrefix(key, "/"), strings.Contains(key, `\`), strings.Contains(key, ".."):
		return ErrInvalidKey
	}
	return nil
}

type noop struct{}

// Noop returns a store that validates keys, accepts uploads and discards
// them. Nothing is ever found.
func Noop() System {
	return noop{}
}

func (noop) Start(*lifecycle.Coordinator) error { return nil }

func (noop) Upload(_ context.Context, key string, _ io.Reader, _ string) error {
	return ValidateKey(key)
}

func (noop) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

func (noop) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return ErrNotFound
}

func (noop) Exists(_ context.Context, key string) (bool, error) {
	return false, ValidateKey(key)
}
