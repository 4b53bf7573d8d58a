// Package coordinator decides whether the shared device plays queued
// requests or the default playlist, and advances the queue on a timer.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/requestline/internal/catalog"
	"github.com/jfmyers9/requestline/internal/events"
	"github.com/jfmyers9/requestline/internal/store"
)

// State is the playback state seen by the coordinator
type State string

const (
	StateDefaultPlaylist State = "DEFAULT_PLAYLIST_ACTIVE"
	StateDraining        State = "QUEUE_DRAINING"
)

// Store is the persistence the coordinator needs
type Store interface {
	Enqueue(ctx context.Context, e store.NewEntry) (*store.EnqueueResult, error)
	Head(ctx context.Context) (*store.QueueEntry, error)
	List(ctx context.Context) ([]store.QueueEntry, error)
	MarkPlaying(ctx context.Context, id int64) (*store.HistoryRecord, error)
	RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (bool, error)
	ActivateDefaultPlaylist(ctx context.Context) error
	DefaultPlaylistActive(ctx context.Context) (bool, error)
	NowPlaying(ctx context.Context) (*store.HistoryRecord, error)
}

// Gate is the cooldown policy consulted on submit
type Gate interface {
	Enforced() bool
	CheckCooldown(ctx context.Context, clientID string) (time.Duration, error)
	RecordSubmission(ctx context.Context, clientID string, duration time.Duration) error
}

// Config holds coordinator settings
type Config struct {
	DefaultPlaylistURI string
	MaxAttempts        int           // playback failures before an entry is dead-lettered
	RetryDelay         time.Duration // wait before retrying a failed play
	MaxTrackDuration   time.Duration // 0 disables the limit
	CallTimeout        time.Duration // bound on a timer-driven advance
}

// Request is a song request from a client
type Request struct {
	TrackID  string
	Message  string
	ClientID string
}

// Submission describes an accepted request
type Submission struct {
	Entry        store.QueueEntry
	Track        catalog.Track
	Transitioned bool
	AdvanceIn    time.Duration // set when Transitioned
}

// Current is what the device is playing
type Current struct {
	State    State
	Playback *catalog.Playback    // nil if the catalog could not be reached
	Request  *store.HistoryRecord // nil while the default playlist plays
}

// EntryPayload is published with queue events
type EntryPayload struct {
	EntryID   int64  `json:"entry_id"`
	TrackID   string `json:"track_id"`
	TrackName string `json:"track_name"`
	Artist    string `json:"artist"`
	Message   string `json:"message,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock replaces the wall clock used for scheduling
func WithClock(clock Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// Coordinator serializes every state transition behind one lock and keeps at
// most one advance scheduled.
type Coordinator struct {
	cfg     Config
	store   Store
	catalog catalog.Catalog
	gate    Gate
	events  events.Publisher
	clock   Clock
	logger  zerolog.Logger

	mu      sync.Mutex
	sched   *scheduler
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Coordinator. Call Start to recover scheduling after a restart.
func New(cfg Config, st Store, cat catalog.Catalog, gate Gate, pub events.Publisher, logger zerolog.Logger, opts ...Option) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		cfg:     cfg,
		store:   st,
		catalog: cat,
		gate:    gate,
		events:  pub,
		clock:   realClock{},
		logger:  logger.With().Str("component", "coordinator").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.sched = newScheduler(c.clock)

	return c
}

// Submit resolves the track, appends it to the queue and, if the default
// playlist was playing, schedules the first advance for when the current
// track ends.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Submission, error) {
	trackID := normalizeTrackID(req.TrackID)
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id is required", ErrInvalidRequest)
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidRequest)
	}

	if err := c.checkCooldown(ctx, req.ClientID); err != nil {
		return nil, err
	}

	track, err := c.catalog.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	if c.cfg.MaxTrackDuration > 0 && track.Duration > c.cfg.MaxTrackDuration {
		return nil, fmt.Errorf("%w: %s is longer than %s", ErrTrackTooLong,
			track.Duration.Round(time.Second), c.cfg.MaxTrackDuration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, ErrStopped
	}

	// Checked again under the lock, where the cooldown is also recorded
	if err := c.checkCooldown(ctx, req.ClientID); err != nil {
		return nil, err
	}

	res, err := c.store.Enqueue(ctx, store.NewEntry{
		ClientID:  req.ClientID,
		TrackID:   track.ID,
		TrackURI:  track.URI,
		TrackName: track.Name,
		Artist:    track.Artist(),
		Duration:  track.Duration,
		Message:   strings.TrimSpace(req.Message),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue request: %w", err)
	}

	if err := c.gate.RecordSubmission(ctx, req.ClientID, track.Duration); err != nil {
		c.logger.Error().Err(err).Str("client", req.ClientID).Msg("failed to record cooldown")
	}

	sub := &Submission{
		Entry:        res.Entry,
		Track:        *track,
		Transitioned: res.Transitioned,
	}

	if res.Transitioned {
		sub.AdvanceIn = c.remainingPlayback(ctx)
		c.scheduleLocked(sub.AdvanceIn)
		c.logger.Info().
			Dur("advance_in", sub.AdvanceIn).
			Msg("leaving default playlist, queue will start after current track")
	}

	c.logger.Info().
		Int64("entry", res.Entry.ID).
		Str("client", req.ClientID).
		Str("track", track.Name).
		Str("artist", track.Artist()).
		Msg("request queued")

	c.publish(events.QueuedEvent, entryPayload(res.Entry, ""))

	return sub, nil
}

// checkCooldown returns a CooldownError while an enforced cooldown runs
func (c *Coordinator) checkCooldown(ctx context.Context, clientID string) error {
	if !c.gate.Enforced() {
		return nil
	}
	remaining, err := c.gate.CheckCooldown(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to check cooldown: %w", err)
	}
	if remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	return nil
}

// Advance cancels any pending advance and moves to the next queued track
// now, or resumes the default playlist if the queue is empty.
func (c *Coordinator) Advance(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}

	c.sched.cancel()
	return c.advanceLocked(ctx)
}

// Skip force-skips the current track. While draining it plays the next
// request immediately; otherwise it skips within the default playlist.
func (c *Coordinator) Skip(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}

	c.sched.cancel()

	active, err := c.store.DefaultPlaylistActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playback state: %w", err)
	}

	if active {
		err = c.catalog.SkipToNext(ctx)
	} else {
		err = c.advanceLocked(ctx)
	}

	if err != nil {
		c.logger.Warn().Bool("default_playlist", active).Err(err).Msg("failed to skip")
		return err
	}

	c.logger.Info().Bool("default_playlist", active).Msg("skipped")
	c.publish(events.SkippedEvent, nil)

	return nil
}

// Start recovers after a restart: if the queue was being drained, the next
// advance is scheduled for when the current track ends.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	active, err := c.store.DefaultPlaylistActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playback state: %w", err)
	}

	if active {
		c.logger.Info().Msg("default playlist active, waiting for requests")
		return nil
	}

	wait := c.remainingPlayback(ctx)
	c.scheduleLocked(wait)
	c.logger.Info().Dur("advance_in", wait).Msg("resuming queue drain")

	return nil
}

// Stop cancels the pending advance and waits for a running one to finish
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.sched.cancel()
	c.mu.Unlock()

	c.cancel()
	c.sched.wait()
	c.logger.Debug().Msg("coordinator stopped")
}

// State returns the current playback state
func (c *Coordinator) State(ctx context.Context) (State, error) {
	active, err := c.store.DefaultPlaylistActive(ctx)
	if err != nil {
		return "", err
	}
	if active {
		return StateDefaultPlaylist, nil
	}
	return StateDraining, nil
}

// Queue returns pending requests in playback order
func (c *Coordinator) Queue(ctx context.Context) ([]store.QueueEntry, error) {
	return c.store.List(ctx)
}

// Current returns the device state and the request being played, if any
func (c *Coordinator) Current(ctx context.Context) (*Current, error) {
	state, err := c.State(ctx)
	if err != nil {
		return nil, err
	}

	cur := &Current{State: state}

	if state == StateDraining {
		cur.Request, err = c.store.NowPlaying(ctx)
		if err != nil {
			return nil, err
		}
	}

	pb, err := c.catalog.GetCurrentPlayback(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read current playback")
	} else {
		cur.Playback = pb
	}

	return cur, nil
}

// NextAdvance returns when the pending advance will fire
func (c *Coordinator) NextAdvance() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.next()
}

// fire runs a timer-driven advance if slot is still current
func (c *Coordinator) fire(slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || !c.sched.claim(slot) {
		c.logger.Debug().Uint64("slot", slot).Msg("ignoring stale advance")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.CallTimeout)
	defer cancel()

	if err := c.advanceLocked(ctx); err != nil && !catalog.IsUnavailable(err) {
		c.logger.Error().Err(err).Msg("advance failed")
	}
}

func (c *Coordinator) scheduleLocked(d time.Duration) {
	if c.stopped {
		return
	}
	slot := c.sched.schedule(d, c.fire)
	c.logger.Debug().Uint64("slot", slot).Dur("in", d).Msg("scheduled advance")
}

// advanceLocked plays the queue head, dead-lettering entries that keep
// failing, or resumes the default playlist when the queue is empty.
func (c *Coordinator) advanceLocked(ctx context.Context) error {
	for {
		entry, err := c.store.Head(ctx)
		if err != nil {
			c.scheduleLocked(c.cfg.RetryDelay)
			return fmt.Errorf("failed to read queue head: %w", err)
		}

		if entry == nil {
			return c.resumePlaylistLocked(ctx)
		}

		if err := c.catalog.PlayTrackByURI(ctx, entry.TrackURI); err != nil {
			// Outages affect every entry, so they do not count as attempts
			if catalog.IsUnavailable(err) {
				c.logger.Warn().
					Err(err).
					Int64("entry", entry.ID).
					Dur("retry_in", c.cfg.RetryDelay).
					Msg("playback unavailable, keeping queue")
				c.scheduleLocked(c.cfg.RetryDelay)
				return err
			}

			dead, ferr := c.store.RecordFailure(ctx, entry.ID, err.Error(), c.cfg.MaxAttempts)
			if ferr != nil {
				c.scheduleLocked(c.cfg.RetryDelay)
				return fmt.Errorf("failed to record playback failure: %w", ferr)
			}

			if dead {
				c.logger.Warn().
					Err(err).
					Int64("entry", entry.ID).
					Str("track", entry.TrackName).
					Msg("request dead-lettered")
				c.publish(events.DeadLetteredEvent, entryPayload(*entry, err.Error()))
				continue
			}

			c.logger.Warn().
				Err(err).
				Int64("entry", entry.ID).
				Int("attempt", entry.Attempts+1).
				Dur("retry_in", c.cfg.RetryDelay).
				Msg("failed to play request, will retry")
			c.scheduleLocked(c.cfg.RetryDelay)
			return err
		}

		// The track is on the device; schedule before persisting so a store
		// failure cannot stall the queue.
		c.scheduleLocked(entry.Duration)

		if _, err := c.store.MarkPlaying(ctx, entry.ID); err != nil {
			return fmt.Errorf("failed to mark request playing: %w", err)
		}

		c.logger.Info().
			Int64("entry", entry.ID).
			Str("track", entry.TrackName).
			Str("artist", entry.Artist).
			Dur("duration", entry.Duration).
			Msg("playing request")
		c.publish(events.TrackStartedEvent, entryPayload(*entry, ""))

		return nil
	}
}

func (c *Coordinator) resumePlaylistLocked(ctx context.Context) error {
	if err := c.store.ActivateDefaultPlaylist(ctx); err != nil {
		c.scheduleLocked(c.cfg.RetryDelay)
		return fmt.Errorf("failed to activate default playlist: %w", err)
	}

	c.logger.Info().Str("playlist", c.cfg.DefaultPlaylistURI).Msg("queue empty, resuming default playlist")
	c.publish(events.PlaylistResumedEvent, nil)

	if err := c.catalog.PlayContextShuffled(ctx, c.cfg.DefaultPlaylistURI); err != nil {
		return fmt.Errorf("failed to resume default playlist: %w", err)
	}

	return nil
}

// remainingPlayback is how long the current track has left, or 0 if it
// cannot be determined
func (c *Coordinator) remainingPlayback(ctx context.Context) time.Duration {
	pb, err := c.catalog.GetCurrentPlayback(ctx)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotAuthenticated) {
			c.logger.Warn().Err(err).Msg("failed to read playback position, advancing now")
		}
		return 0
	}
	return pb.Remaining()
}

func (c *Coordinator) publish(typ string, payload any) {
	if c.events != nil {
		c.events.Publish(typ, payload)
	}
}

func entryPayload(e store.QueueEntry, reason string) EntryPayload {
	return EntryPayload{
		EntryID:   e.ID,
		TrackID:   e.TrackID,
		TrackName: e.TrackName,
		Artist:    e.Artist,
		Message:   e.Message,
		Reason:    reason,
	}
}

// normalizeTrackID accepts a bare id, a spotify:track: URI or an
// open.spotify.com track link.
func normalizeTrackID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "spotify:track:")

	if i := strings.Index(id, "/track/"); i >= 0 {
		id = id[i+len("/track/"):]
	}
	if i := strings.IndexAny(id, "?#/"); i >= 0 {
		id = id[:i]
	}

	return id
}
