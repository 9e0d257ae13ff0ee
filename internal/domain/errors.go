package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed search request (bad offset, limit, filter).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrBackendUnavailable signals that a search backend could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// BackendError attributes a failure to one side of the blend.
type BackendError struct {
	Backend string // "primary" or "secondary"
	Op      string // "search", "retrieve", "retrieve_batch"
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Backend, e.Op, e.Err.Error())
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err with the backend role and operation. Returns nil for a nil err.
func NewBackendError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Op: op, Err: err}
}
