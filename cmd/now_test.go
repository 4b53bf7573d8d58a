package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "handle emoji correctly",
			input:    "🎵 Music",
			width:    15,
			expected: "🎵 Music       ", // emoji is 2 chars wide, so 8 total + 7 spaces
		},
		{
			name:     "truncate emoji text",
			input:    "🎵 This is a very long song title",
			width:    15,
			expected: "🎵 This is a...",
		},
		{
			name:     "handle unicode characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate unicode text",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ", // 日本語 is 6 chars, ... is 3, need 1 space
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "single character padding",
			input:    "A",
			width:    5,
			expected: "A    ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			// Verify the result has the expected display width (if width > 0)
			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	track := nowTrack{
		Name:     "Hyperballad",
		Artist:   "Björk",
		Album:    "Post",
		Message:  "for the kitchen",
		Duration: 5*time.Minute + 21*time.Second,
		Position: 90 * time.Second,
	}

	tests := []struct {
		name     string
		format   string
		expected string
		wantErr  bool
	}{
		{name: "default format", format: "{{.Artist}} - {{.Name}}", expected: "Björk - Hyperballad"},
		{name: "album and message", format: "{{.Album}}: {{.Message}}", expected: "Post: for the kitchen"},
		{name: "durations", format: "{{.Position}}/{{.Duration}}", expected: "1m30s/5m21s"},
		{name: "conditional", format: "{{if .Requested}}*{{end}}{{.Name}}", expected: "Hyperballad"},
		{name: "invalid template", format: "{{.Name", wantErr: true},
		{name: "unknown field", format: "{{.Genre}}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := formatTrack(track, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("formatTrack(%q) = %q, expected %q", tt.format, result, tt.expected)
			}
		})
	}
}

func TestToNowTrack(t *testing.T) {
	requested := time.Now()
	cur := &requestline.Current{
		Playing:     true,
		Track:       &requestline.Track{Name: "Song", Artist: "Artist", Album: "Album", DurationMs: 200000},
		ProgressMs:  1500,
		Message:     "hi",
		RequestedAt: &requested,
	}

	track := toNowTrack(cur)
	if track.Duration != 200*time.Second {
		t.Errorf("expected 200s duration, got %v", track.Duration)
	}
	if track.Position != 1500*time.Millisecond {
		t.Errorf("expected 1.5s position, got %v", track.Position)
	}
	if !track.Requested || track.Message != "hi" {
		t.Errorf("expected requested track with message, got %+v", track)
	}

	cur.RequestedAt = nil
	if toNowTrack(cur).Requested {
		t.Error("expected playlist track to not be marked requested")
	}
}

func TestMarqueeText(t *testing.T) {
	t.Run("short text is padded", func(t *testing.T) {
		result := marqueeText("Hi", 6, 2, " • ")
		if result != "Hi    " {
			t.Errorf("expected padded text, got %q", result)
		}
	})

	t.Run("long text keeps exact width", func(t *testing.T) {
		text := "A rather long artist name - An even longer track title"
		result := marqueeText(text, 12, 2, " • ")
		if w := runewidth.StringWidth(result); w != 12 {
			t.Errorf("expected width 12, got %d (%q)", w, result)
		}
		if strings.TrimSpace(result) == "" {
			t.Errorf("expected a window of the source text, got %q", result)
		}
	})

	t.Run("zero width passes through", func(t *testing.T) {
		if result := marqueeText("unchanged", 0, 2, " "); result != "unchanged" {
			t.Errorf("expected text unchanged, got %q", result)
		}
	})
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{61*time.Minute + 1500*time.Millisecond, "61:02"},
		{-time.Second, "0:00"},
	}

	for _, tt := range tests {
		if got := formatClock(tt.in); got != tt.want {
			t.Errorf("formatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
