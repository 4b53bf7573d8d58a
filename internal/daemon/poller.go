package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/requestline/internal/catalog"
)

// PlaybackSource reports what the device is playing
type PlaybackSource interface {
	GetCurrentPlayback(ctx context.Context) (*catalog.Playback, error)
}

// TrackUpdate represents one poll of the device
type TrackUpdate struct {
	Playback *catalog.Playback // Current playback (Track is nil if nothing is loaded)
	Err      error             // Error from the catalog
}

// Poller polls the device at regular intervals
type Poller struct {
	source   PlaybackSource
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(source PlaybackSource, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run starts the polling loop and sends updates to the provided channel
// Blocks until context is cancelled
func (p *Poller) Run(ctx context.Context, updates chan<- TrackUpdate) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx, updates)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, updates)
		}
	}
}

// poll queries the device and sends an update
func (p *Poller) poll(ctx context.Context, updates chan<- TrackUpdate) {
	pb, err := p.source.GetCurrentPlayback(ctx)
	if err != nil {
		// Not authorized yet is expected until an admin logs in
		if errors.Is(err, catalog.ErrNotAuthenticated) {
			return
		}
		p.logger.Debug().Err(err).Msg("Error getting current playback")
		select {
		case updates <- TrackUpdate{Err: err}:
		case <-ctx.Done():
		}
		return
	}

	select {
	case updates <- TrackUpdate{Playback: pb}:
		if pb.Track != nil {
			p.logger.Debug().
				Str("track", pb.Track.Name).
				Str("artist", pb.Track.Artist()).
				Bool("playing", pb.Playing).
				Msg("Poll update")
		}
	case <-ctx.Done():
	}
}
