package coordinator

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCooldownActive is returned when a client submits before its
	// cooldown expires and enforcement is on
	ErrCooldownActive = errors.New("cooldown active")

	// ErrTrackTooLong is returned when a track exceeds the configured maximum
	ErrTrackTooLong = errors.New("track too long")

	// ErrInvalidRequest is returned for submissions missing a track or client
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStopped is returned after Stop
	ErrStopped = errors.New("coordinator stopped")
)

// CooldownError carries how long the client must still wait
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: %s remaining", e.Remaining.Round(time.Second))
}

// Is allows errors.Is(err, ErrCooldownActive)
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
