package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
)

const (
	// MaxSearchLimit is the largest page the search endpoint returns
	MaxSearchLimit = 50

	marketFromToken = "from_token"
)

// spotifyAPI is the subset of *spotify.Client used here.
// This allows for mocking in tests.
type spotifyAPI interface {
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	NextOpt(ctx context.Context, opt *spotify.PlayOptions) error
	ShuffleOpt(ctx context.Context, shuffle bool, opt *spotify.PlayOptions) error
	VolumeOpt(ctx context.Context, percent int, opt *spotify.PlayOptions) error
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
}

var _ Catalog = (*Spotify)(nil)

// Config holds catalog client settings
type Config struct {
	DeviceID string      // optional target device; empty means the active device
	Retry    RetryPolicy // zero value uses DefaultRetryPolicy
}

// Spotify implements Catalog over the Spotify Web API
type Spotify struct {
	mu         sync.RWMutex
	api        spotifyAPI
	apiOptions []spotify.ClientOption
	deviceID   string
	retry      RetryPolicy
	logger     zerolog.Logger
}

// NewSpotify creates a catalog client. It returns ErrNotAuthenticated from
// every call until Connect is given an authorized HTTP client.
func NewSpotify(cfg Config, logger zerolog.Logger) *Spotify {
	retry := cfg.Retry
	if retry.Attempts == 0 {
		retry = DefaultRetryPolicy
	}

	return &Spotify{
		// The client waits out Retry-After on 429 responses
		apiOptions: []spotify.ClientOption{spotify.WithRetry(true)},
		deviceID:   cfg.DeviceID,
		retry:      retry,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
}

// Connect installs an OAuth-authorized HTTP client
func (s *Spotify) Connect(httpClient *http.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = spotify.New(httpClient, s.apiOptions...)
}

// Connected reports whether an authorized client is installed
func (s *Spotify) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api != nil
}

func (s *Spotify) client() (spotifyAPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.api == nil {
		return nil, ErrNotAuthenticated
	}
	return s.api, nil
}

func (s *Spotify) playOptions() *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	if s.deviceID != "" {
		id := spotify.ID(s.deviceID)
		opts.DeviceID = &id
	}
	return opts
}

// GetTrack resolves track metadata by id
func (s *Spotify) GetTrack(ctx context.Context, id string) (*Track, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}

	var track *Track
	err = s.call(ctx, OpGetTrack, func(ctx context.Context) error {
		full, err := api.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return err
		}
		track = convertTrack(full)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return track, nil
}

// GetCurrentPlayback returns what the device is playing. A nil Track means
// nothing is loaded.
func (s *Spotify) GetCurrentPlayback(ctx context.Context) (*Playback, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}

	pb := &Playback{}
	err = s.call(ctx, "get playback", func(ctx context.Context) error {
		state, err := api.PlayerState(ctx)
		if err != nil {
			return err
		}

		pb = &Playback{}
		if state == nil {
			return nil
		}

		pb.Playing = state.Playing
		pb.Progress = time.Duration(state.Progress) * time.Millisecond
		pb.DeviceID = string(state.Device.ID)
		if state.Item != nil {
			pb.Track = convertTrack(state.Item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pb, nil
}

// PlayTrackByURI starts playback of a single track
func (s *Spotify) PlayTrackByURI(ctx context.Context, uri string) error {
	api, err := s.client()
	if err != nil {
		return err
	}

	return s.call(ctx, "play track", func(ctx context.Context) error {
		opts := s.playOptions()
		opts.URIs = []spotify.URI{spotify.URI(uri)}
		return api.PlayOpt(ctx, opts)
	})
}

// PlayContextShuffled enables shuffle and then starts the context. A failure
// to enable shuffle is logged and does not prevent playback.
func (s *Spotify) PlayContextShuffled(ctx context.Context, contextURI string) error {
	if err := s.SetShuffle(ctx, true); err != nil {
		if err == ErrNotAuthenticated {
			return err
		}
		s.logger.Warn().Err(err).Msg("failed to enable shuffle")
	}

	api, err := s.client()
	if err != nil {
		return err
	}

	return s.call(ctx, "play context", func(ctx context.Context) error {
		opts := s.playOptions()
		uri := spotify.URI(contextURI)
		opts.PlaybackContext = &uri
		return api.PlayOpt(ctx, opts)
	})
}

// SkipToNext skips to the next track in the device's own queue
func (s *Spotify) SkipToNext(ctx context.Context) error {
	api, err := s.client()
	if err != nil {
		return err
	}

	return s.call(ctx, "next", func(ctx context.Context) error {
		return api.NextOpt(ctx, s.playOptions())
	})
}

// SetShuffle toggles shuffle on the device
func (s *Spotify) SetShuffle(ctx context.Context, enabled bool) error {
	api, err := s.client()
	if err != nil {
		return err
	}

	return s.call(ctx, "shuffle", func(ctx context.Context) error {
		return api.ShuffleOpt(ctx, enabled, s.playOptions())
	})
}

// SetVolume sets the device volume, clamped to 0-100
func (s *Spotify) SetVolume(ctx context.Context, percent int) error {
	api, err := s.client()
	if err != nil {
		return err
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return s.call(ctx, "volume", func(ctx context.Context) error {
		return api.VolumeOpt(ctx, percent, s.playOptions())
	})
}

// Search performs a prefix search of the catalog. Only tracks are supported.
func (s *Spotify) Search(ctx context.Context, text string, t SearchType, limit int) ([]Track, error) {
	if t != SearchTrack {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSearchType, t)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []Track{}, nil
	}

	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	api, err := s.client()
	if err != nil {
		return nil, err
	}

	tracks := []Track{}
	err = s.call(ctx, "search", func(ctx context.Context) error {
		result, err := api.Search(ctx, text+"*", spotify.SearchTypeTrack,
			spotify.Limit(limit),
			spotify.Market(marketFromToken),
		)
		if err != nil {
			return err
		}

		tracks = []Track{}
		if result == nil || result.Tracks == nil {
			return nil
		}
		for i := range result.Tracks.Tracks {
			tracks = append(tracks, *convertTrack(&result.Tracks.Tracks[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tracks, nil
}

func convertTrack(track *spotify.FullTrack) *Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return &Track{
		ID:       string(track.ID),
		URI:      string(track.URI),
		Name:     track.Name,
		Artists:  artists,
		Album:    track.Album.Name,
		Duration: time.Duration(track.Duration) * time.Millisecond,
	}
}
