package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

type fakeSource struct {
	current *requestline.Current
	items   []requestline.QueueItem
	err     error
	skips   int
}

func (f *fakeSource) Current(ctx context.Context) (*requestline.Current, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.current, nil
}

func (f *fakeSource) Queue(ctx context.Context) ([]requestline.QueueItem, error) {
	return f.items, nil
}

func (f *fakeSource) Skip(ctx context.Context) error {
	f.skips++
	return nil
}

func TestFetch(t *testing.T) {
	source := &fakeSource{
		current: &requestline.Current{State: "QUEUE_DRAINING", Track: &requestline.Track{Name: "Song"}},
		items:   []requestline.QueueItem{{Position: 1, TrackName: "Next"}},
	}
	a := New(source, DefaultConfig())

	a.fetch()
	if a.current == nil || a.current.Track.Name != "Song" {
		t.Fatalf("expected current track, got %+v", a.current)
	}
	if len(a.items) != 1 {
		t.Errorf("expected 1 queued item, got %d", len(a.items))
	}

	// Errors keep the last good state
	source.err = errors.New("connection refused")
	a.fetch()
	if a.lastErr == nil {
		t.Error("expected error to be recorded")
	}
	if a.current == nil {
		t.Error("expected last good state to be kept")
	}
}

func TestActivityRingBuffer(t *testing.T) {
	a := New(&fakeSource{}, DefaultConfig())

	for i := 0; i < maxActivity+3; i++ {
		a.addActivity(strings.Repeat("x", i+1))
	}

	got := a.recentActivity()
	if len(got) != maxActivity {
		t.Fatalf("expected %d entries, got %d", maxActivity, len(got))
	}
	if len(got[0].Text) != maxActivity+3 {
		t.Errorf("expected most recent first, got %q", got[0].Text)
	}
	if len(got[maxActivity-1].Text) != 4 {
		t.Errorf("expected oldest kept entry to be 4, got %q", got[maxActivity-1].Text)
	}
}

func TestDescribeEvent(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"track_name": "Song [A]", "reason": "restricted"})

	tests := []struct {
		typ  string
		want string
	}{
		{typ: "queued", want: "+ Song [A[]"},
		{typ: "track_started", want: "▶ Song"},
		{typ: "dead_lettered", want: "restricted"},
		{typ: "playlist_resumed", want: "default playlist"},
		{typ: "skipped", want: "skipped"},
		{typ: "now_playing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got := describeEvent(requestline.Event{Type: tt.typ, Payload: payload})
			if tt.want == "" {
				if got != "" {
					t.Errorf("expected no activity, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q to contain %q", got, tt.want)
			}
		})
	}
}

func TestNowPlayingText(t *testing.T) {
	if got := nowPlayingText(nil, nil); !strings.Contains(got, "Nothing playing") {
		t.Errorf("unexpected idle text %q", got)
	}
	if got := nowPlayingText(nil, errors.New("daemon down")); !strings.Contains(got, "daemon down") {
		t.Errorf("expected error in text, got %q", got)
	}

	got := nowPlayingText(&requestline.Current{
		State:   "QUEUE_DRAINING",
		Playing: true,
		Track:   &requestline.Track{Name: "Song", Artist: "Band"},
		Message: "for the kitchen",
	}, nil)
	for _, want := range []string{"Song", "Band", "for the kitchen", "request"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestQueueText(t *testing.T) {
	if got := queueText(nil, 40); !strings.Contains(got, "empty") {
		t.Errorf("unexpected empty queue text %q", got)
	}

	got := queueText([]requestline.QueueItem{
		{Position: 1, TrackName: "First", Artist: "A"},
		{Position: 2, TrackName: strings.Repeat("Long", 20), Artist: "B", Attempts: 2},
	}, 30)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "First - A") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "...") || !strings.Contains(lines[1], "retry 2") {
		t.Errorf("expected truncated retry line, got %q", lines[1])
	}
}

func TestBuildProgressBar(t *testing.T) {
	bar := buildProgressBar(30*time.Second, time.Minute, 10)
	if strings.Count(bar, "█") != 5 || strings.Count(bar, "░") != 5 {
		t.Errorf("expected half filled bar, got %q", bar)
	}

	if bar := buildProgressBar(0, 0, 4); bar != "----" {
		t.Errorf("expected dashes for unknown duration, got %q", bar)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 0, want: "00:00"},
		{d: -time.Second, want: "00:00"},
		{d: 3*time.Minute + 7*time.Second, want: "03:07"},
		{d: time.Hour + 2*time.Minute, want: "1:02:00"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, expected %q", tt.d, got, tt.want)
		}
	}
}
