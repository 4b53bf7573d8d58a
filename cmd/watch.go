package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

var watchJSON bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream queue and playback events",
	Long: `Print events from the daemon as they happen: requests being queued,
tracks starting, failed requests and playback changes.

Use --json to print raw events, one per line.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print raw JSON events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	stream, err := client.Events(ctx)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer stream.Close()

	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	for {
		ev, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}

		if watchJSON {
			out, _ := json.Marshal(ev)
			fmt.Println(string(out))
			continue
		}
		if line := formatEvent(*ev); line != "" {
			fmt.Printf("%s %s\n", color.HiBlackString(ev.Created.Local().Format("15:04:05")), line)
		}
	}
}

// eventPayload holds the fields any event may carry
type eventPayload struct {
	TrackName string `json:"track_name"`
	Artist    string `json:"artist"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
	Change    string `json:"change"`
}

// formatEvent renders ev as one colored line
func formatEvent(ev requestline.Event) string {
	var p eventPayload
	if len(ev.Payload) > 0 {
		_ = json.Unmarshal(ev.Payload, &p)
	}
	track := fmt.Sprintf("%s - %s", p.Artist, p.TrackName)

	switch ev.Type {
	case requestline.EventQueued:
		line := color.CyanString("queued   ") + track
		if p.Message != "" {
			line += color.HiBlackString(" %q", p.Message)
		}
		return line
	case requestline.EventTrackStarted:
		return color.GreenString("playing  ") + track
	case requestline.EventDeadLettered:
		return color.RedString("failed   ") + track + color.HiBlackString(" (%s)", p.Reason)
	case requestline.EventPlaylistResumed:
		return color.YellowString("playlist ") + "default playlist resumed"
	case requestline.EventSkipped:
		return color.YellowString("skipped")
	case requestline.EventNowPlaying:
		if p.TrackName == "" {
			return color.HiBlackString("%s", p.Change)
		}
		return color.HiBlackString("%-8s ", p.Change) + track
	default:
		return ev.Type
	}
}
