package cloud

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for classified API failures. Callers check these
// with errors.Is to decide whether a cycle failure is worth alerting
// on or just transient noise.
var (
	// ErrBadRequest indicates a 400 response, usually a malformed
	// payload. Retrying the same payload cannot succeed.
	ErrBadRequest = errors.New("cloud: bad request")

	// ErrUnauthorized indicates a 401 or 403 response.
	ErrUnauthorized = errors.New("cloud: unauthorized")

	// ErrNotFound indicates a 404 response, e.g. an unknown farm.
	ErrNotFound = errors.New("cloud: not found")

	// ErrThrottled indicates a 429 response. The server asked us to
	// back off.
	ErrThrottled = errors.New("cloud: throttled")

	// ErrServerError indicates a 5xx response.
	ErrServerError = errors.New("cloud: server error")

	// ErrRetriesExhausted indicates the retry budget was spent
	// without a successful response.
	ErrRetriesExhausted = errors.New("cloud: retries exhausted")
)

// APIError carries the HTTP status and server-provided detail of a
// failed API call. It wraps one of the sentinel errors above so both
// errors.Is and errors.As work on it.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v (HTTP %d): %s", e.Err, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%v (HTTP %d)", e.Err, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error, or nil
// for success.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code >= 500:
		return ErrServerError
	default:
		return fmt.Errorf("cloud: unexpected HTTP status %d", code)
	}
}

// isRetryable reports whether a request that failed with the given
// status code may succeed on retry. Timeouts, throttling and server
// errors are transient; client errors are not.
func isRetryable(code int) bool {
	switch {
	case code == http.StatusRequestTimeout:
		return true
	case code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}
