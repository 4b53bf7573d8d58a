package catalog

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
)

// mockAPI implements spotifyAPI with function fields for testing
type mockAPI struct {
	GetTrackFunc    func(ctx context.Context, id spotify.ID) (*spotify.FullTrack, error)
	PlayerStateFunc func(ctx context.Context) (*spotify.PlayerState, error)
	PlayOptFunc     func(ctx context.Context, opt *spotify.PlayOptions) error
	NextOptFunc     func(ctx context.Context, opt *spotify.PlayOptions) error
	ShuffleOptFunc  func(ctx context.Context, shuffle bool, opt *spotify.PlayOptions) error
	VolumeOptFunc   func(ctx context.Context, percent int, opt *spotify.PlayOptions) error
	SearchFunc      func(ctx context.Context, query string, t spotify.SearchType) (*spotify.SearchResult, error)

	calls []string
}

func (m *mockAPI) GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error) {
	m.calls = append(m.calls, "get_track")
	return m.GetTrackFunc(ctx, id)
}

func (m *mockAPI) PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error) {
	m.calls = append(m.calls, "player_state")
	return m.PlayerStateFunc(ctx)
}

func (m *mockAPI) PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error {
	m.calls = append(m.calls, "play")
	if m.PlayOptFunc == nil {
		return nil
	}
	return m.PlayOptFunc(ctx, opt)
}

func (m *mockAPI) NextOpt(ctx context.Context, opt *spotify.PlayOptions) error {
	m.calls = append(m.calls, "next")
	if m.NextOptFunc == nil {
		return nil
	}
	return m.NextOptFunc(ctx, opt)
}

func (m *mockAPI) ShuffleOpt(ctx context.Context, shuffle bool, opt *spotify.PlayOptions) error {
	m.calls = append(m.calls, "shuffle")
	if m.ShuffleOptFunc == nil {
		return nil
	}
	return m.ShuffleOptFunc(ctx, shuffle, opt)
}

func (m *mockAPI) VolumeOpt(ctx context.Context, percent int, opt *spotify.PlayOptions) error {
	m.calls = append(m.calls, "volume")
	if m.VolumeOptFunc == nil {
		return nil
	}
	return m.VolumeOptFunc(ctx, percent, opt)
}

func (m *mockAPI) Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error) {
	m.calls = append(m.calls, "search")
	return m.SearchFunc(ctx, query, t)
}

func newTestSpotify(api spotifyAPI, deviceID string) *Spotify {
	s := NewSpotify(Config{
		DeviceID: deviceID,
		Retry: RetryPolicy{
			Attempts:   3,
			Backoff:    time.Millisecond,
			MaxBackoff: 4 * time.Millisecond,
		},
	}, zerolog.Nop())
	s.api = api
	return s
}

func fullTrack(id string) spotify.FullTrack {
	return spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:       spotify.ID(id),
			URI:      spotify.URI("spotify:track:" + id),
			Name:     "Song " + id,
			Duration: 180000,
			Artists: []spotify.SimpleArtist{
				{Name: "First"},
				{Name: "Second"},
			},
		},
		Album: spotify.SimpleAlbum{Name: "Album " + id},
	}
}

func TestNotAuthenticated(t *testing.T) {
	s := NewSpotify(Config{}, zerolog.Nop())

	if s.Connected() {
		t.Error("expected new client to be disconnected")
	}

	if _, err := s.GetTrack(context.Background(), "abc"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := s.PlayContextShuffled(context.Background(), "spotify:playlist:x"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	s.Connect(http.DefaultClient)
	if !s.Connected() {
		t.Error("expected client to be connected")
	}
}

func TestGetTrack(t *testing.T) {
	api := &mockAPI{
		GetTrackFunc: func(ctx context.Context, id spotify.ID) (*spotify.FullTrack, error) {
			track := fullTrack(string(id))
			return &track, nil
		},
	}
	s := newTestSpotify(api, "")

	track, err := s.GetTrack(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if track.ID != "abc" || track.URI != "spotify:track:abc" {
		t.Errorf("unexpected identity: %+v", track)
	}
	if track.Duration != 3*time.Minute {
		t.Errorf("expected 3m, got %v", track.Duration)
	}
	if track.Artist() != "First, Second" {
		t.Errorf("expected joined artists, got %q", track.Artist())
	}
	if track.Album != "Album abc" {
		t.Errorf("unexpected album %q", track.Album)
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
		temporary bool
	}{
		{
			name:      "success first try",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "server error then success",
			errs:      []error{spotify.Error{Status: 502, Message: "bad gateway"}, nil},
			wantCalls: 2,
		},
		{
			name:      "rate limited then success",
			errs:      []error{spotify.Error{Status: 429, Message: "slow down"}, nil},
			wantCalls: 2,
		},
		{
			name: "network errors exhaust budget",
			errs: []error{
				&net.OpError{Op: "dial", Err: errors.New("refused")},
				&net.OpError{Op: "dial", Err: errors.New("refused")},
				&net.OpError{Op: "dial", Err: errors.New("refused")},
			},
			wantCalls: 3,
			wantErr:   true,
			temporary: true,
		},
		{
			name:      "client error not retried",
			errs:      []error{spotify.Error{Status: 404, Message: "no device"}},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			api := &mockAPI{
				PlayOptFunc: func(ctx context.Context, opt *spotify.PlayOptions) error {
					err := tt.errs[calls]
					calls++
					return err
				},
			}
			s := newTestSpotify(api, "")

			err := s.PlayTrackByURI(context.Background(), "spotify:track:abc")
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err == nil {
				return
			}

			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("expected UpstreamError, got %T", err)
			}
			if ue.Op != "play track" {
				t.Errorf("unexpected op %q", ue.Op)
			}
			if ue.Temporary() != tt.temporary {
				t.Errorf("expected Temporary()=%v", tt.temporary)
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	calls := 0
	api := &mockAPI{
		PlayOptFunc: func(ctx context.Context, opt *spotify.PlayOptions) error {
			calls++
			return spotify.Error{Status: 503, Message: "unavailable"}
		},
	}
	s := newTestSpotify(api, "")
	s.retry.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := s.PlayTrackByURI(ctx, "spotify:track:abc")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancel, got %d", calls)
	}
}

func TestGetCurrentPlayback(t *testing.T) {
	t.Run("playing", func(t *testing.T) {
		item := fullTrack("abc")
		api := &mockAPI{
			PlayerStateFunc: func(ctx context.Context) (*spotify.PlayerState, error) {
				return &spotify.PlayerState{
					CurrentlyPlaying: spotify.CurrentlyPlaying{
						Progress: 60000,
						Playing:  true,
						Item:     &item,
					},
					Device: spotify.PlayerDevice{ID: "device-1"},
				}, nil
			},
		}
		s := newTestSpotify(api, "")

		pb, err := s.GetCurrentPlayback(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pb.DeviceID != "device-1" || !pb.Playing {
			t.Errorf("unexpected playback: %+v", pb)
		}
		if pb.Remaining() != 2*time.Minute {
			t.Errorf("expected 2m remaining, got %v", pb.Remaining())
		}
	})

	t.Run("nothing playing", func(t *testing.T) {
		api := &mockAPI{
			PlayerStateFunc: func(ctx context.Context) (*spotify.PlayerState, error) {
				return &spotify.PlayerState{}, nil
			},
		}
		s := newTestSpotify(api, "")

		pb, err := s.GetCurrentPlayback(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pb.Track != nil || pb.Remaining() != 0 {
			t.Errorf("expected empty playback, got %+v", pb)
		}
	})
}

func TestPlayContextShuffled(t *testing.T) {
	t.Run("shuffle before play", func(t *testing.T) {
		var gotContext spotify.URI
		var gotDevice spotify.ID
		api := &mockAPI{
			PlayOptFunc: func(ctx context.Context, opt *spotify.PlayOptions) error {
				gotContext = *opt.PlaybackContext
				gotDevice = *opt.DeviceID
				return nil
			},
		}
		s := newTestSpotify(api, "kitchen")

		if err := s.PlayContextShuffled(context.Background(), "spotify:playlist:p"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(api.calls) != 2 || api.calls[0] != "shuffle" || api.calls[1] != "play" {
			t.Errorf("expected shuffle then play, got %v", api.calls)
		}
		if gotContext != "spotify:playlist:p" {
			t.Errorf("unexpected context %q", gotContext)
		}
		if gotDevice != "kitchen" {
			t.Errorf("unexpected device %q", gotDevice)
		}
	})

	t.Run("shuffle failure still plays", func(t *testing.T) {
		api := &mockAPI{
			ShuffleOptFunc: func(ctx context.Context, shuffle bool, opt *spotify.PlayOptions) error {
				return spotify.Error{Status: 403, Message: "restricted"}
			},
		}
		s := newTestSpotify(api, "")

		if err := s.PlayContextShuffled(context.Background(), "spotify:playlist:p"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if api.calls[len(api.calls)-1] != "play" {
			t.Errorf("expected play after failed shuffle, got %v", api.calls)
		}
	})
}

func TestSetVolumeClamps(t *testing.T) {
	var got []int
	api := &mockAPI{
		VolumeOptFunc: func(ctx context.Context, percent int, opt *spotify.PlayOptions) error {
			got = append(got, percent)
			return nil
		},
	}
	s := newTestSpotify(api, "")

	for _, v := range []int{-5, 40, 150} {
		if err := s.SetVolume(context.Background(), v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := []int{0, 40, 100}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestSearch(t *testing.T) {
	var gotQuery string
	api := &mockAPI{
		SearchFunc: func(ctx context.Context, query string, st spotify.SearchType) (*spotify.SearchResult, error) {
			gotQuery = query
			return &spotify.SearchResult{
				Tracks: &spotify.FullTrackPage{
					Tracks: []spotify.FullTrack{fullTrack("a"), fullTrack("b")},
				},
			}, nil
		},
	}
	s := newTestSpotify(api, "")

	tracks, err := s.Search(context.Background(), "  hey jude ", SearchTrack, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "hey jude*" {
		t.Errorf("expected prefix query, got %q", gotQuery)
	}
	if len(tracks) != 2 || tracks[0].ID != "a" {
		t.Errorf("unexpected results: %+v", tracks)
	}

	if _, err := s.Search(context.Background(), "x", SearchType("album"), 10); !errors.Is(err, ErrUnsupportedSearchType) {
		t.Errorf("expected ErrUnsupportedSearchType, got %v", err)
	}

	tracks, err = s.Search(context.Background(), "   ", SearchTrack, 10)
	if err != nil || len(tracks) != 0 {
		t.Errorf("expected empty result for blank query, got %v %v", tracks, err)
	}
}

func TestConnectWaitsOutRetryAfter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc","uri":"spotify:track:abc","name":"Song","duration_ms":1000,"artists":[{"name":"A"}],"album":{"name":"Al"}}`))
	}))
	defer srv.Close()

	s := NewSpotify(Config{}, zerolog.Nop())
	s.apiOptions = append(s.apiOptions, spotify.WithBaseURL(srv.URL+"/"))
	s.Connect(srv.Client())

	track, err := s.GetTrack(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.URI != "spotify:track:abc" {
		t.Errorf("unexpected track %+v", track)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not authenticated", ErrNotAuthenticated, true},
		{"deadline", context.DeadlineExceeded, true},
		{"rate limited", &UpstreamError{Op: "play", Status: http.StatusTooManyRequests}, true},
		{"server error", &UpstreamError{Op: "play", Status: http.StatusBadGateway}, true},
		{"revoked", &UpstreamError{Op: "play", Status: http.StatusUnauthorized}, true},
		{"no active device", &UpstreamError{Op: "play", Status: http.StatusNotFound}, true},
		{"unknown track", &UpstreamError{Op: OpGetTrack, Status: http.StatusNotFound}, false},
		{"bad request", &UpstreamError{Op: "play", Status: http.StatusBadRequest}, false},
		{"forbidden", &UpstreamError{Op: "play", Status: http.StatusForbidden}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
