package putio

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the cloud API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("putio: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("putio: %s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// IsAuthError checks if an error indicates rejected credentials (401/403).
// The orchestrator stops polling when it sees one of these.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound checks if an error is an HTTP 404 from the API. Deleting an
// already-deleted transfer reports NotFound and is treated as success.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransient checks if an error is worth retrying: server errors and
// rate limiting.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}
