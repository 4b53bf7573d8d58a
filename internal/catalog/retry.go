package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/zmb3/spotify/v2"
)

// RetryPolicy bounds how often a failed remote call is repeated
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration // wait before the second attempt
	MaxBackoff time.Duration
}

// DefaultRetryPolicy is 3 attempts with backoff starting at 500ms, capped at 10s
var DefaultRetryPolicy = RetryPolicy{
	Attempts:   3,
	Backoff:    500 * time.Millisecond,
	MaxBackoff: 10 * time.Second,
}

// call runs fn with retry. Only temporary upstream errors are retried.
func (s *Spotify) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	policy := s.retry
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	backoff := policy.Backoff
	var lastErr *UpstreamError

	for i := 0; i < policy.Attempts; i++ {
		s.logger.Debug().
			Str("op", op).
			Int("attempt", i+1).
			Int("max_attempts", policy.Attempts).
			Msg("calling catalog")

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrNotAuthenticated) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = upstreamError(op, err)
		if !lastErr.Temporary() || i == policy.Attempts-1 {
			break
		}

		s.logger.Debug().Err(lastErr).Str("op", op).Dur("backoff", backoff).Msg("temporary catalog error, retrying")
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, policy.MaxBackoff)
	}

	return lastErr
}

// upstreamError classifies err returned by the spotify client
func upstreamError(op string, err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{Op: op, Status: apiErr.Status, Err: fmt.Errorf("%s", apiErr.Message)}
	}

	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{Op: op, Status: apiErrPtr.Status, Err: fmt.Errorf("%s", apiErrPtr.Message)}
	}

	return &UpstreamError{Op: op, Err: err}
}

// isNetworkError checks if err came from the network rather than the API
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	t := time.NewTimer(duration)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if limit > 0 && next > limit {
		return limit
	}
	return next
}
