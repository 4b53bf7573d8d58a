package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

// requestCmd represents the request command
var requestCmd = &cobra.Command{
	Use:   "request <track> [message...]",
	Short: "Request a song",
	Long: `Add a song to the shared queue.

The track may be a Spotify track ID, a spotify:track: URI or an
open.spotify.com link. Any remaining arguments are attached as a message
shown while the song plays.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)
}

func runRequest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	sub, err := client.Submit(ctx, requestline.SubmitRequest{
		TrackID: args[0],
		Message: strings.Join(args[1:], " "),
	})
	if err != nil {
		var apiErr *requestline.Error
		if errors.Is(err, requestline.ErrCooldownActive) && errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			return fmt.Errorf("you can request again in %s", time.Duration(apiErr.RetryAfter)*time.Second)
		}
		return fmt.Errorf("failed to request song: %w", err)
	}

	color.New(color.FgGreen).Printf("✓ Queued %s\n", color.New(color.Bold).Sprint(sub.Track.Name))
	fmt.Printf("  %s · %s\n", sub.Track.Artist, formatClock(sub.Track.Duration()))
	if sub.Transitioned {
		fmt.Printf("  Starts after the current track (%s)\n", formatClock(time.Duration(sub.AdvanceInMs)*time.Millisecond))
	}

	return nil
}

// formatClock formats a duration as M:SS
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
