package coordinator

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jfmyers9/requestline/internal/catalog"
)

// fakeClock fires timers only when Advance is called
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running due timers in deadline order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.done && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}

		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.done = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor stopped
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// fakeCatalog records every playback call
type fakeCatalog struct {
	mu          sync.Mutex
	tracks      map[string]catalog.Track
	playback    *catalog.Playback
	playbackErr error
	playErr     func(uri string) error
	getDelay    time.Duration
	calls       []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{tracks: make(map[string]catalog.Track)}
}

func (f *fakeCatalog) addTrack(id string, d time.Duration) catalog.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := catalog.Track{
		ID:       id,
		URI:      "spotify:track:" + id,
		Name:     "Song " + id,
		Artists:  []string{"Artist " + id},
		Duration: d,
	}
	f.tracks[id] = t
	return t
}

func (f *fakeCatalog) setPlayback(pb *catalog.Playback, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playback = pb
	f.playbackErr = err
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCatalog) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Played returns the track URIs played, in order
func (f *fakeCatalog) Played() []string {
	var played []string
	for _, call := range f.Calls() {
		if uri, ok := strings.CutPrefix(call, "play_track:"); ok {
			played = append(played, uri)
		}
	}
	return played
}

func (f *fakeCatalog) GetTrack(ctx context.Context, id string) (*catalog.Track, error) {
	f.record("get_track:" + id)
	f.mu.Lock()
	delay := f.getDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, &catalog.UpstreamError{Op: catalog.OpGetTrack, Status: http.StatusNotFound, Err: errors.New("non existing id")}
	}
	return &t, nil
}

func (f *fakeCatalog) GetCurrentPlayback(ctx context.Context) (*catalog.Playback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playbackErr != nil {
		return nil, f.playbackErr
	}
	if f.playback == nil {
		return &catalog.Playback{}, nil
	}
	pb := *f.playback
	return &pb, nil
}

func (f *fakeCatalog) PlayTrackByURI(ctx context.Context, uri string) error {
	f.record("play_track:" + uri)
	f.mu.Lock()
	playErr := f.playErr
	f.mu.Unlock()
	if playErr != nil {
		return playErr(uri)
	}
	return nil
}

func (f *fakeCatalog) PlayContextShuffled(ctx context.Context, contextURI string) error {
	f.record("play_context:" + contextURI)
	return nil
}

func (f *fakeCatalog) SkipToNext(ctx context.Context) error {
	f.record("skip")
	return nil
}

func (f *fakeCatalog) SetShuffle(ctx context.Context, enabled bool) error {
	f.record("shuffle")
	return nil
}

func (f *fakeCatalog) SetVolume(ctx context.Context, percent int) error {
	f.record("volume")
	return nil
}

func (f *fakeCatalog) Search(ctx context.Context, text string, t catalog.SearchType, limit int) ([]catalog.Track, error) {
	f.record("search")
	return nil, nil
}

// recorder collects published event types
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(typ string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, typ)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
