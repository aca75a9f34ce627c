package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a provider failure: transport, rate limit, or malformed response.
type Error struct {
	Provider string
	Status   int    // HTTP status, 0 for transport/parse failures
	Code     string // provider error code when available
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: rate limits, server
// errors, and transport failures. Malformed responses and client errors are
// not retryable.
func (e *Error) Retryable() bool {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	case e.Status == 0 && e.Code != codeMalformed:
		return true
	}
	return false
}

const codeMalformed = "malformed_response"

// IsRetryable reports whether err is a retryable provider error.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable()
}
