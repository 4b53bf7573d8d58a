package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/internal/tui"
	"github.com/jfmyers9/requestline/pkg/requestline"
)

var tuiRefresh time.Duration

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Display a dashboard for the session",
	Long: `Display a terminal dashboard for a running daemon with live updates.

The dashboard includes:
- Now playing display with track, artist and request message
- Progress bar showing playback position
- The pending request queue
- Recent activity from the event stream

Press 'q' to quit, 'r' to refresh, and 'n' to skip when an admin token
is configured.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().DurationVar(&tuiRefresh, "refresh", time.Second, "How often to poll the daemon")
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := tui.DefaultConfig()
	cfg.RefreshRate = tuiRefresh
	cfg.Admin = client.HasAdminToken()

	// The dashboard still polls if the stream is unavailable
	var events <-chan requestline.Event
	if stream, err := client.Events(ctx); err == nil {
		defer stream.Close()
		events = forwardEvents(ctx, stream)
	}

	app := tui.New(client, cfg)
	if err := app.Run(ctx, events); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

// forwardEvents copies stream events to a channel until the stream fails
func forwardEvents(ctx context.Context, stream *requestline.EventStream) <-chan requestline.Event {
	ch := make(chan requestline.Event, 16)
	go func() {
		defer close(ch)
		for {
			ev, err := stream.Next()
			if err != nil {
				return
			}
			select {
			case ch <- *ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
