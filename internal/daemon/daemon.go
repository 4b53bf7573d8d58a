package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/requestline/internal/catalog"
	"github.com/jfmyers9/requestline/internal/config"
	"github.com/jfmyers9/requestline/internal/cooldown"
	"github.com/jfmyers9/requestline/internal/coordinator"
	"github.com/jfmyers9/requestline/internal/events"
	"github.com/jfmyers9/requestline/internal/server"
	"github.com/jfmyers9/requestline/internal/store"
)

// cleanupInterval is how often expired history is pruned
const cleanupInterval = time.Hour

// NowPlayingPayload is published with now_playing events
type NowPlayingPayload struct {
	Change     string `json:"change"`
	TrackID    string `json:"track_id,omitempty"`
	TrackName  string `json:"track_name,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Playing    bool   `json:"playing"`
	ProgressMs int64  `json:"progress_ms"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Daemon wires the store, catalog, coordinator and HTTP server together
type Daemon struct {
	config  *config.Config
	store   *store.Store
	spotify *catalog.Spotify
	auth    *catalog.Auth
	hub     *events.Hub
	coord   *coordinator.Coordinator
	server  *server.Server
	poller  *Poller
	state   *State
	logger  zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg *config.Config, logger zerolog.Logger) (*Daemon, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	spotify := catalog.NewSpotify(catalog.Config{DeviceID: cfg.Spotify.DeviceID}, logger)
	auth := catalog.NewAuth(catalog.AuthConfig{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURI,
	}, st, logger)

	gate := cooldown.NewGate(st, cooldown.Policy{
		Track:   cfg.Cooldown.Track,
		Enforce: cfg.Cooldown.Enforce,
	}, logger)

	hub := events.NewHub(32, logger)

	coord := coordinator.New(coordinator.Config{
		DefaultPlaylistURI: cfg.Playlist.DefaultURI,
		MaxAttempts:        cfg.Queue.MaxAttempts,
		RetryDelay:         cfg.Queue.RetryDelay,
		MaxTrackDuration:   cfg.Queue.MaxTrackDuration,
	}, st, spotify, gate, hub, logger)

	d := &Daemon{
		config:  cfg,
		store:   st,
		spotify: spotify,
		auth:    auth,
		hub:     hub,
		coord:   coord,
		poller:  NewPoller(spotify, cfg.PollInterval, logger),
		state:   NewState(),
		logger:  logger.With().Str("component", "daemon").Logger(),
	}

	d.server = server.New(server.Deps{
		Coordinator:  coord,
		Catalog:      spotify,
		Cooldowns:    gate,
		DeadLetters:  st,
		Auth:         auth,
		Events:       hub,
		AdminToken:   cfg.AdminToken,
		OnAuthorized: d.authorized,
	}, logger)

	return d, nil
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Second signal forces exit
		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	// Run the daemon
	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Str("addr", d.config.ListenAddr).Msg("Starting daemon")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.connect(); err != nil {
		if !errors.Is(err, catalog.ErrNotAuthenticated) {
			return err
		}
		d.logger.Warn().Msg("Spotify not authorized yet, an admin must visit /auth")
	}

	if err := d.coord.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	var (
		wg        sync.WaitGroup
		serverErr error
	)
	updates := make(chan TrackUpdate, 10)

	// Start HTTP server; a listen failure stops the whole daemon
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.server.Run(ctx, d.config.ListenAddr); err != nil {
			serverErr = fmt.Errorf("server error: %w", err)
			cancel()
		}
	}()

	// Start poller
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.poller.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	}()

	// Start history cleanup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.cleanupHistory(ctx)
	}()

	// Main loop: handle playback updates
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.handleUpdates(ctx, updates)
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	d.coord.Stop()
	d.hub.Close()

	d.logger.Info().Msg("Daemon stopped")
	return serverErr
}

// connect builds an authorized Spotify client from the stored credential
func (d *Daemon) connect() error {
	// Token refreshes outlive any single request
	client, err := d.auth.HTTPClient(context.Background())
	if err != nil {
		return err
	}
	d.spotify.Connect(client)
	d.logger.Info().Msg("Connected to Spotify")
	return nil
}

// authorized connects with the new credential and restarts a queue drain
// that stalled while playback was unavailable
func (d *Daemon) authorized(ctx context.Context) error {
	if err := d.connect(); err != nil {
		return err
	}
	if err := d.coord.Start(ctx); err != nil {
		return fmt.Errorf("failed to resume coordinator: %w", err)
	}
	return nil
}

// handleUpdates processes playback updates from the poller
func (d *Daemon) handleUpdates(ctx context.Context, updates <-chan TrackUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.Err != nil {
				// Log error but continue
				d.logger.Debug().Err(update.Err).Msg("Playback update error")
				continue
			}
			d.handlePlayback(update.Playback)
		}
	}
}

// handlePlayback records a poll result and publishes what changed
func (d *Daemon) handlePlayback(pb *catalog.Playback) {
	previous := d.state.GetState()
	played := d.state.GetPlayedDuration()

	change := d.state.Update(pb)
	if change == ChangeNone {
		return
	}

	payload := NowPlayingPayload{Change: change.String()}
	if pb != nil {
		payload.Playing = pb.Playing
		payload.ProgressMs = pb.Progress.Milliseconds()
		if pb.Track != nil {
			payload.TrackID = pb.Track.ID
			payload.TrackName = pb.Track.Name
			payload.Artist = pb.Track.Artist()
			payload.DurationMs = pb.Track.Duration.Milliseconds()
		}
	}

	event := d.logger.Debug().Str("change", change.String())
	if change == ChangeStarted {
		event = d.logger.Info().Str("track", payload.TrackName).Str("artist", payload.Artist)
		if previous.Track != nil {
			event = event.Str("previous", previous.Track.Name).Dur("previous_played", played)
		}
	}
	event.Msg("Playback changed")

	d.hub.Publish(events.NowPlayingEvent, payload)
}

// cleanupHistory periodically prunes history older than the retention window
func (d *Daemon) cleanupHistory(ctx context.Context) {
	if d.config.History.Retention <= 0 {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	// Prune immediately on start
	d.pruneHistory(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pruneHistory(ctx)
		}
	}
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	n, err := d.store.CleanupHistory(ctx, d.config.History.Retention)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to clean up history")
		return
	}
	if n > 0 {
		d.logger.Info().Int64("removed", n).Msg("Cleaned up history")
	}
}

// Shutdown releases the daemon's resources
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	if err := d.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	return nil
}
