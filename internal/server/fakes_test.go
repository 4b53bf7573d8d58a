package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jfmyers9/requestline/internal/catalog"
	"github.com/jfmyers9/requestline/internal/coordinator"
	"github.com/jfmyers9/requestline/internal/store"
)

type stubCoordinator struct {
	mu       sync.Mutex
	requests []coordinator.Request
	skips    int

	submitErr error
	entries   []store.QueueEntry
	current   *coordinator.Current
}

func (c *stubCoordinator) Submit(ctx context.Context, req coordinator.Request) (*coordinator.Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	return &coordinator.Submission{
		Entry: store.QueueEntry{ID: int64(len(c.requests)), TrackID: req.TrackID, ClientID: req.ClientID},
		Track: catalog.Track{
			ID:       req.TrackID,
			URI:      "spotify:track:" + req.TrackID,
			Name:     "Song",
			Artists:  []string{"A", "B"},
			Duration: 3 * time.Minute,
		},
		Transitioned: len(c.requests) == 1,
		AdvanceIn:    45 * time.Second,
	}, nil
}

func (c *stubCoordinator) Queue(ctx context.Context) ([]store.QueueEntry, error) {
	return c.entries, nil
}

func (c *stubCoordinator) Current(ctx context.Context) (*coordinator.Current, error) {
	if c.current == nil {
		return &coordinator.Current{State: coordinator.StateDefaultPlaylist}, nil
	}
	return c.current, nil
}

func (c *stubCoordinator) Skip(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skips++
	return nil
}

type stubCatalog struct {
	mu          sync.Mutex
	volume      int
	shuffle     bool
	searchLimit int
	searchType  catalog.SearchType
	playerErr   error
}

func (c *stubCatalog) GetTrack(ctx context.Context, id string) (*catalog.Track, error) {
	return nil, catalog.ErrNotAuthenticated
}

func (c *stubCatalog) GetCurrentPlayback(ctx context.Context) (*catalog.Playback, error) {
	return &catalog.Playback{}, nil
}

func (c *stubCatalog) PlayTrackByURI(ctx context.Context, uri string) error      { return nil }
func (c *stubCatalog) PlayContextShuffled(ctx context.Context, uri string) error { return nil }
func (c *stubCatalog) SkipToNext(ctx context.Context) error                     { return nil }

func (c *stubCatalog) SetShuffle(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playerErr != nil {
		return c.playerErr
	}
	c.shuffle = enabled
	return nil
}

func (c *stubCatalog) SetVolume(ctx context.Context, percent int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playerErr != nil {
		return c.playerErr
	}
	c.volume = percent
	return nil
}

func (c *stubCatalog) Search(ctx context.Context, text string, t catalog.SearchType, limit int) ([]catalog.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchLimit = limit
	c.searchType = t
	if t != catalog.SearchTrack {
		return nil, catalog.ErrUnsupportedSearchType
	}
	return []catalog.Track{{ID: "1", Name: text, Artists: []string{"X"}, Duration: time.Minute}}, nil
}

type stubCooldowns struct {
	remaining time.Duration
	enforced  bool
	clientID  string
}

func (c *stubCooldowns) Enforced() bool { return c.enforced }

func (c *stubCooldowns) CheckCooldown(ctx context.Context, clientID string) (time.Duration, error) {
	c.clientID = clientID
	return c.remaining, nil
}

type stubDeadLetters struct {
	letters []store.DeadLetter
}

func (d *stubDeadLetters) DeadLetters(ctx context.Context, limit int) ([]store.DeadLetter, error) {
	if limit < len(d.letters) {
		return d.letters[:limit], nil
	}
	return d.letters, nil
}

type stubAuth struct {
	mu        sync.Mutex
	exchanged []string
}

func (a *stubAuth) AuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (a *stubAuth) Exchange(ctx context.Context, state string, r *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchanged = append(a.exchanged, state)
	return nil
}
