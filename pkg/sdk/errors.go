package blendex

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError. Use errors.Is() to check.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrRateLimited            = errors.New("rate limited")
	ErrBackendUnavailable     = errors.New("backend unavailable")
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	ErrNotImplemented         = errors.New("not implemented")
)

var codeSentinels = map[string]error{
	"bad_request":              ErrInvalidRequest,
	"validation_failed":        ErrInvalidRequest,
	"unauthorized":             ErrUnauthorized,
	"not_found":                ErrNotFound,
	"rate_limited":             ErrRateLimited,
	"backend_unavailable":      ErrBackendUnavailable,
	"embedding_provider_error": ErrEmbeddingProviderError,
	"not_implemented":          ErrNotImplemented,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("blendex: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("blendex: http %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is maps the error code, or the status when no code was sent, to a sentinel.
func (e *APIError) Is(target error) bool {
	if s, ok := codeSentinels[e.Code]; ok {
		return s == target
	}
	switch e.StatusCode {
	case 400:
		return target == ErrInvalidRequest
	case 401:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	case 429:
		return target == ErrRateLimited
	case 501:
		return target == ErrNotImplemented
	case 502, 503, 504:
		return target == ErrBackendUnavailable
	}
	return false
}
