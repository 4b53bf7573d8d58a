package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated is returned when no account has authorized playback yet
	ErrNotAuthenticated = errors.New("catalog: not authenticated")

	// ErrUnsupportedSearchType is returned for search types other than track
	ErrUnsupportedSearchType = errors.New("catalog: unsupported search type")
)

// OpGetTrack is the UpstreamError.Op of track lookups
const OpGetTrack = "get track"

// UpstreamError is a failed call to the remote music service.
type UpstreamError struct {
	Op     string // catalog operation, e.g. "play"
	Status int    // HTTP status, 0 for network errors
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Temporary returns true if the call may succeed when retried.
//
// Network errors, rate limiting and server errors are temporary.
func (e *UpstreamError) Temporary() bool {
	if e.Status == 0 {
		return isNetworkError(e.Err)
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsUnavailable reports whether err means nothing can be played right now,
// as opposed to a problem with one track: no authorization, an unreachable
// or failing service, or no active device.
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return false
	}

	switch {
	case ue.Temporary():
		return true
	case ue.Status == http.StatusUnauthorized:
		return true
	case ue.Status == http.StatusNotFound && ue.Op != OpGetTrack:
		// Player endpoints answer 404 when no device is active
		return true
	default:
		return false
	}
}
