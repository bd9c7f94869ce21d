package analyzer

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when a provider answers 2xx with no text.
var ErrEmptyResponse = errors.New("analyzer: empty response")

// APIError is a non-2xx response from a model provider.
type APIError struct {
	Analyzer   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Analyzer, e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a provider 429.
func IsRateLimited(err error) bool { return HasStatusCode(err, http.StatusTooManyRequests) }

// IsUnauthorized reports whether err is a provider 401.
func IsUnauthorized(err error) bool { return HasStatusCode(err, http.StatusUnauthorized) }

// HasStatusCode reports whether err is an APIError with the given status.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
