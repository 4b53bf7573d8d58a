package requestline

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error response from the requestline API.
//
// The Error type carries the HTTP status and the message from the
// response envelope. It implements error, and provides additional
// methods for retry logic.
type Error struct {
	Status  int    // HTTP status code
	Message string // Error message from the server

	// RetryAfter is the server's Retry-After hint in seconds, if any
	RetryAfter int
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("requestline: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Is checks if the target error is a requestline error with the same status.
//
// This allows errors.Is(err, ErrCooldownActive) and similar checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// Temporary returns true if the error is temporary and the request
// should be retried.
//
// Server errors are temporary except 501 Not Implemented. 502 means the
// music service failed and is also worth retrying.
func (e *Error) Temporary() bool {
	return e.Status >= 500 && e.Status != http.StatusNotImplemented
}

// Predefined errors for common cases. Compare with errors.Is.
var (
	ErrInvalidRequest   = &Error{Status: http.StatusBadRequest}
	ErrUnauthorized     = &Error{Status: http.StatusUnauthorized}
	ErrNotFound         = &Error{Status: http.StatusNotFound}
	ErrTrackTooLong     = &Error{Status: http.StatusUnprocessableEntity}
	ErrCooldownActive   = &Error{Status: http.StatusTooManyRequests}
	ErrUpstream         = &Error{Status: http.StatusBadGateway}
	ErrNotAuthenticated = &Error{Status: http.StatusServiceUnavailable}

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("requestline: invalid configuration")
)

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}
