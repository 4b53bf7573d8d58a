package requestline

import (
	"encoding/json"
	"time"
)

// Response is the envelope every API response is wrapped in.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Track is a catalog track.
type Track struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

// SubmitRequest is the body of a song request.
type SubmitRequest struct {
	TrackID string `json:"track_id"` // bare id, spotify:track: URI or open.spotify.com link
	Message string `json:"message,omitempty"`
}

// Submission is returned for an accepted request.
type Submission struct {
	EntryID      int64 `json:"entry_id"`
	Track        Track `json:"track"`
	Transitioned bool  `json:"transitioned"` // the request ended default playlist playback
	AdvanceInMs  int64 `json:"advance_in_ms,omitempty"`
}

// QueueItem is one pending request.
type QueueItem struct {
	Position   int       `json:"position"` // 1-based
	EntryID    int64     `json:"entry_id"`
	TrackID    string    `json:"track_id"`
	TrackName  string    `json:"track_name"`
	Artist     string    `json:"artist"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Attempts   int       `json:"attempts,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Current describes what the shared device is playing.
type Current struct {
	State       string     `json:"state"`
	Playing     bool       `json:"playing"`
	Track       *Track     `json:"track,omitempty"`
	ProgressMs  int64      `json:"progress_ms"`
	Message     string     `json:"message,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"` // set when a request is playing
}

// Cooldown is the calling client's cooldown.
type Cooldown struct {
	SecondsRemaining int64 `json:"seconds_remaining"`
	Enforced         bool  `json:"enforced"`
}

// DeadLetter is a request dropped after repeated playback failures.
type DeadLetter struct {
	EntryID   int64     `json:"entry_id"`
	ClientID  string    `json:"client_id"`
	TrackID   string    `json:"track_id"`
	TrackName string    `json:"track_name"`
	Artist    string    `json:"artist"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}

// VolumeRequest sets the device volume.
type VolumeRequest struct {
	Percent int `json:"percent"`
}

// ShuffleRequest toggles shuffle on the device.
type ShuffleRequest struct {
	Enabled bool `json:"enabled"`
}

// Event types sent on the event stream.
const (
	EventQueued          = "queued"
	EventTrackStarted    = "track_started"
	EventPlaylistResumed = "playlist_resumed"
	EventDeadLettered    = "dead_lettered"
	EventSkipped         = "skipped"
	EventNowPlaying      = "now_playing"
)

// Event is a message from the event stream.
type Event struct {
	Type    string          `json:"type"`
	Created time.Time       `json:"created"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
