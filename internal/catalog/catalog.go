// Package catalog talks to the remote music service that owns the shared
// playback device.
package catalog

import (
	"context"
	"strings"
	"time"
)

// SearchType selects what kind of item Search returns
type SearchType string

const (
	SearchTrack SearchType = "track"
)

// Track represents a track in the remote catalog
type Track struct {
	ID       string
	URI      string
	Name     string
	Artists  []string
	Album    string
	Duration time.Duration
}

// Artist returns the track's artists joined for display
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Playback is a snapshot of what the device is doing
type Playback struct {
	Track    *Track // nil when nothing is loaded
	Progress time.Duration
	Playing  bool
	DeviceID string
}

// Remaining returns how long the current track has left to play.
// It is zero when nothing is playing.
func (p *Playback) Remaining() time.Duration {
	if p == nil || p.Track == nil || !p.Playing {
		return 0
	}
	remaining := p.Track.Duration - p.Progress
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Catalog is the contract the coordinator and API rely on. Every call is a
// synchronous remote request.
type Catalog interface {
	GetTrack(ctx context.Context, id string) (*Track, error)
	GetCurrentPlayback(ctx context.Context) (*Playback, error)
	PlayTrackByURI(ctx context.Context, uri string) error
	PlayContextShuffled(ctx context.Context, contextURI string) error
	SkipToNext(ctx context.Context) error
	SetShuffle(ctx context.Context, enabled bool) error
	SetVolume(ctx context.Context, percent int) error
	Search(ctx context.Context, text string, t SearchType, limit int) ([]Track, error)
}
