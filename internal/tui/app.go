package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

const maxActivity = 8

// Source is the API the dashboard reads from
type Source interface {
	Current(ctx context.Context) (*requestline.Current, error)
	Queue(ctx context.Context) ([]requestline.QueueItem, error)
	Skip(ctx context.Context) error
}

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to poll the daemon
	Admin       bool          // Enables the skip key
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: time.Second,
	}
}

// Activity is one line in the activity panel
type Activity struct {
	Text string
	At   time.Time
}

// App is the dashboard for a requestline daemon
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	queue      *tview.TextView
	activity   *tview.TextView
	status     *tview.TextView

	config Config
	client Source

	// mu guards state shared by the event consumer and the refresh ticker
	mu sync.Mutex

	current   *requestline.Current
	fetchedAt time.Time
	items     []requestline.QueueItem
	lastErr   error

	sessionStart time.Time

	// Ring buffer of recent events
	activityBuf   [maxActivity]Activity
	activityCount int

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastQueue      string
	lastActivity   string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a dashboard reading from client
func New(client Source, cfg Config) *App {
	a := &App{
		app:          tview.NewApplication(),
		config:       cfg,
		client:       client,
		sessionStart: time.Now(),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.queue = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.queue.SetBorder(true).
		SetTitle(" Up Next ").
		SetTitleAlign(tview.AlignLeft)

	a.activity = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.activity.SetBorder(true).
		SetTitle(" Activity ").
		SetTitleAlign(tview.AlignLeft)

	keys := "[gray]q:quit  r:refresh[-]"
	if a.config.Admin {
		keys = "[gray]q:quit  r:refresh  n:skip[-]"
	}
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(keys)

	// Top row: now playing
	// Middle row: progress bar
	// Bottom row: queue | activity
	// Footer: key help
	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.queue, 0, 1, false).
		AddItem(a.activity, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 2, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 0, 3, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case 'r', 'R':
		go a.fetch()
		return nil
	case 'n', 'N':
		if a.config.Admin {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := a.client.Skip(ctx); err != nil {
					a.addActivity(fmt.Sprintf("[red]skip failed: %s[-]", tview.Escape(err.Error())))
					return
				}
				a.fetch()
			}()
		}
		return nil
	}
	return event
}

// Run starts the dashboard. events may be nil if the stream is unavailable.
func (a *App) Run(ctx context.Context, events <-chan requestline.Event) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx, events)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates consumes events and drives redraws from a single ticker so
// queued redraws cannot build up.
func (a *App) handleUpdates(ctx context.Context, events <-chan requestline.Event) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					a.addActivity("[gray]event stream closed[-]")
					return
				}
				if text := describeEvent(ev); text != "" {
					a.addActivity(text)
				}
				// Queue events change what is shown, so fetch now
				a.fetch()
			}
		}
	}()

	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = time.Second
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	a.fetch()
	a.refresh()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.fetch()
			a.refresh()
		}
	}
}

// fetch reads the current track and the queue from the daemon
func (a *App) fetch() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cur, err := a.client.Current(ctx)
	var items []requestline.QueueItem
	if err == nil {
		items, err = a.client.Queue(ctx)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastErr = err
	if err != nil {
		return
	}
	a.current = cur
	a.fetchedAt = time.Now()
	a.items = items
}

// addActivity appends to the activity ring buffer
func (a *App) addActivity(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.activityBuf[a.activityCount%maxActivity] = Activity{Text: text, At: time.Now()}
	a.activityCount++
}

// recentActivity returns activity most-recent-first.
// Must be called with a.mu held.
func (a *App) recentActivity() []Activity {
	n := min(a.activityCount, maxActivity)
	result := make([]Activity, n)
	for i := 0; i < n; i++ {
		result[i] = a.activityBuf[(a.activityCount-1-i)%maxActivity]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateQueue()
		a.updateActivity()
	})
}

func (a *App) updateNowPlaying() {
	text := nowPlayingText(a.current, a.lastErr)
	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

func (a *App) updateProgress() {
	var text string

	if cur := a.current; cur != nil && cur.Track != nil {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		// Interpolate between polls while playing
		position := time.Duration(cur.ProgressMs) * time.Millisecond
		if cur.Playing {
			position += time.Since(a.fetchedAt)
		}
		duration := cur.Track.Duration()
		if duration > 0 && position > duration {
			position = duration
		}

		text = fmt.Sprintf("%s %s %s",
			formatDuration(position),
			buildProgressBar(position, duration, a.lastBarWidth),
			formatDuration(duration))
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

func (a *App) updateQueue() {
	_, _, width, _ := a.queue.GetInnerRect()
	text := queueText(a.items, width)
	if text != a.lastQueue {
		a.lastQueue = text
		a.queue.SetText(text)
	}
}

func (a *App) updateActivity() {
	var sb strings.Builder

	entries := a.recentActivity()
	if len(entries) == 0 {
		sb.WriteString("[gray]No activity yet[-]\n")
	}
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("[gray]%s[-] %s\n", e.At.Format("15:04"), e.Text))
	}
	sb.WriteString(fmt.Sprintf("\n[gray]Session: %s[-]", formatDuration(time.Since(a.sessionStart))))

	text := sb.String()
	if text != a.lastActivity {
		a.lastActivity = text
		a.activity.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

func nowPlayingText(cur *requestline.Current, err error) string {
	if err != nil && cur == nil {
		return fmt.Sprintf("\n\n[red]%s[-]", tview.Escape(err.Error()))
	}
	if cur == nil || cur.Track == nil {
		return "\n\n[gray]Nothing playing[-]"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(cur.Track.Name)))
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(cur.Track.Artist)))
	if cur.Track.Album != "" {
		sb.WriteString(fmt.Sprintf("[gray]%s[-]\n", tview.Escape(cur.Track.Album)))
	}

	if cur.Message != "" {
		sb.WriteString(fmt.Sprintf("\n[aqua]“%s”[-]\n", tview.Escape(cur.Message)))
	}

	stateIcon := "[green]▶[-]"
	if !cur.Playing {
		stateIcon = "[yellow]⏸[-]"
	}
	source := "[gray]default playlist[-]"
	if cur.State == "QUEUE_DRAINING" {
		source = "[green]request[-]"
	}
	sb.WriteString(fmt.Sprintf("\n%s %s", stateIcon, source))

	return sb.String()
}

func queueText(items []requestline.QueueItem, width int) string {
	if len(items) == 0 {
		return "[gray]Queue is empty[-]"
	}

	nameWidth := width - 6
	if nameWidth < 20 {
		nameWidth = 20
	}

	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		line := fmt.Sprintf("%s - %s", item.TrackName, item.Artist)
		line = runewidth.Truncate(line, nameWidth, "...")
		sb.WriteString(fmt.Sprintf("[yellow]%2d[-] %s", item.Position, tview.Escape(line)))
		if item.Attempts > 0 {
			sb.WriteString(fmt.Sprintf(" [red](retry %d)[-]", item.Attempts))
		}
	}
	return sb.String()
}

// describeEvent renders an event for the activity panel
func describeEvent(ev requestline.Event) string {
	var p struct {
		TrackName string `json:"track_name"`
		Artist    string `json:"artist"`
		Reason    string `json:"reason"`
		Change    string `json:"change"`
	}
	if len(ev.Payload) > 0 {
		_ = json.Unmarshal(ev.Payload, &p)
	}
	name := tview.Escape(p.TrackName)

	switch ev.Type {
	case requestline.EventQueued:
		return fmt.Sprintf("[white]+ %s[-]", name)
	case requestline.EventTrackStarted:
		return fmt.Sprintf("[green]▶ %s[-]", name)
	case requestline.EventDeadLettered:
		return fmt.Sprintf("[red]✗ %s (%s)[-]", name, tview.Escape(p.Reason))
	case requestline.EventPlaylistResumed:
		return "[gray]default playlist resumed[-]"
	case requestline.EventSkipped:
		return "[yellow]skipped[-]"
	default:
		// now_playing fires on every pause and resume
		return ""
	}
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", max(width, 0))
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
