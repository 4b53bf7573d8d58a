package daemon

import (
	"sync"
	"time"

	"github.com/jfmyers9/requestline/internal/catalog"
)

// Change describes how playback moved between two polls
type Change int

const (
	ChangeNone Change = iota
	ChangeStarted
	ChangePaused
	ChangeResumed
	ChangeStopped
)

func (c Change) String() string {
	switch c {
	case ChangeStarted:
		return "started"
	case ChangePaused:
		return "paused"
	case ChangeResumed:
		return "resumed"
	case ChangeStopped:
		return "stopped"
	default:
		return "none"
	}
}

// PlaybackState is the daemon's view of the track on the device
type PlaybackState struct {
	Track         *catalog.Track // Currently loaded track (nil if stopped)
	Playing       bool
	StartTime     time.Time     // When playback started (or resumed)
	PausedAt      time.Time     // When track was paused (zero if not paused)
	TotalPlayTime time.Duration // Accumulated play time (excludes pauses)
}

// State tracks playback across polls with thread-safe access
type State struct {
	mu      sync.RWMutex
	current PlaybackState
	now     func() time.Time
}

// NewState creates an empty State
func NewState() *State {
	return &State{now: time.Now}
}

// Update records a poll result and reports what changed
func (s *State) Update(pb *catalog.Playback) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Nothing loaded
	if pb == nil || pb.Track == nil {
		if s.current.Track == nil {
			return ChangeNone
		}
		s.current = PlaybackState{}
		return ChangeStopped
	}

	// New or different track
	if !isSameTrack(s.current.Track, pb.Track) {
		s.current = PlaybackState{
			Track:     pb.Track,
			Playing:   pb.Playing,
			StartTime: now,
		}
		if !pb.Playing {
			s.current.PausedAt = now
		}
		return ChangeStarted
	}

	switch {
	case pb.Playing && !s.current.Playing:
		// Add time played before pause to total
		if !s.current.PausedAt.IsZero() {
			s.current.TotalPlayTime += s.current.PausedAt.Sub(s.current.StartTime)
		}
		s.current.StartTime = now
		s.current.PausedAt = time.Time{}
		s.current.Playing = true
		return ChangeResumed
	case !pb.Playing && s.current.Playing:
		s.current.PausedAt = now
		s.current.Playing = false
		return ChangePaused
	}

	return ChangeNone
}

// GetState returns a copy of the current state
func (s *State) GetState() PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// GetPlayedDuration returns the total time the current track has been played
// This accounts for pauses and resumes
func (s *State) GetPlayedDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// If currently paused, return accumulated time up to pause
	if !s.current.PausedAt.IsZero() {
		return s.current.TotalPlayTime + s.current.PausedAt.Sub(s.current.StartTime)
	}

	if s.current.Track != nil && s.current.Playing {
		return s.current.TotalPlayTime + s.now().Sub(s.current.StartTime)
	}

	return s.current.TotalPlayTime
}

// isSameTrack compares two tracks by catalog id
func isSameTrack(t1, t2 *catalog.Track) bool {
	if t1 == nil || t2 == nil {
		return false
	}
	return t1.ID == t2.ID
}
