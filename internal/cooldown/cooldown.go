// Package cooldown tracks how long each client must wait between requests.
package cooldown

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Store persists per-client cooldown expiry
type Store interface {
	Cooldown(ctx context.Context, clientID string) (time.Time, bool, error)
	SetCooldown(ctx context.Context, clientID string, expiresAt time.Time) error
}

// Policy controls whether cooldowns are recorded and enforced
type Policy struct {
	// Track records now + track duration on each submission. When false the
	// expiry is reset to the submission time, so clients never wait.
	Track bool

	// Enforce makes submissions fail while a cooldown is active
	Enforce bool
}

// Gate implements CheckCooldown and RecordSubmission
type Gate struct {
	store  Store
	policy Policy
	now    func() time.Time
	logger zerolog.Logger
}

// NewGate creates a Gate backed by store
func NewGate(store Store, policy Policy, logger zerolog.Logger) *Gate {
	return &Gate{
		store:  store,
		policy: policy,
		now:    time.Now,
		logger: logger.With().Str("component", "cooldown").Logger(),
	}
}

// SetClock overrides the time source
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Enforced reports whether submissions must respect the cooldown
func (g *Gate) Enforced() bool {
	return g.policy.Enforce
}

// CheckCooldown returns the time left before clientID's cooldown expires.
// The result is negative once expired and zero for unknown clients.
func (g *Gate) CheckCooldown(ctx context.Context, clientID string) (time.Duration, error) {
	expiresAt, ok, err := g.store.Cooldown(ctx, clientID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return expiresAt.Sub(g.now()), nil
}

// RecordSubmission starts clientID's cooldown for a track of the given length
func (g *Gate) RecordSubmission(ctx context.Context, clientID string, duration time.Duration) error {
	expiresAt := g.now()
	if g.policy.Track {
		expiresAt = expiresAt.Add(duration)
	}

	if err := g.store.SetCooldown(ctx, clientID, expiresAt); err != nil {
		return err
	}

	g.logger.Debug().
		Str("client", clientID).
		Time("expires_at", expiresAt).
		Msg("recorded submission")

	return nil
}
