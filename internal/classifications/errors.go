package classifications

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors for classification operations.
var (
	ErrNotFound     = errors.New("classification not found")
	ErrDuplicate    = errors.New("classification already exists")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("import conflict")
	ErrStoreFailure = errors.New("store failure")
	ErrBusy         = errors.New("import capacity exhausted")
)

// ValidationError rejects a batch for malformed or inconsistent input.
// Key and Domain identify the offending record when known.
type ValidationError struct {
	Reason string
	Key    string
	Domain string
}

func (e *ValidationError) Error() string {
	if e.Key == "" && e.Domain == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s (key %q, domain %q)", e.Reason, e.Key, e.Domain)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError rejects a batch for structural conflicts: duplicate entries,
// identifier collisions, or parent cycles. Keys holds domain/key references.
type ConflictError struct {
	Reason string
	Keys   []string
}

func (e *ConflictError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("conflict: %s", e.Reason)
	}
	return fmt.Sprintf("conflict: %s: %s", e.Reason, strings.Join(e.Keys, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StoreError wraps an infrastructure failure raised by the store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// MapHTTPStatus maps classification domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
