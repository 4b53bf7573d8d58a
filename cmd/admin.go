package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

var deadLetterLimit int

var skipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Skip the current track (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdminClient(func(ctx context.Context, c *requestline.Client) error {
			if err := c.Skip(ctx); err != nil {
				return fmt.Errorf("failed to skip: %w", err)
			}
			color.Green("✓ Skipped")
			return nil
		})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set the device volume (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := strconv.Atoi(args[0])
		if err != nil || percent < 0 || percent > 100 {
			return fmt.Errorf("volume must be a number between 0 and 100")
		}
		return withAdminClient(func(ctx context.Context, c *requestline.Client) error {
			if err := c.SetVolume(ctx, percent); err != nil {
				return fmt.Errorf("failed to set volume: %w", err)
			}
			color.Green("✓ Volume set to %d%%", percent)
			return nil
		})
	},
}

var shuffleCmd = &cobra.Command{
	Use:       "shuffle <on|off>",
	Short:     "Toggle shuffle on the device (admin)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "on", "true":
			enabled = true
		case "off", "false":
		default:
			return fmt.Errorf("shuffle must be 'on' or 'off'")
		}
		return withAdminClient(func(ctx context.Context, c *requestline.Client) error {
			if err := c.SetShuffle(ctx, enabled); err != nil {
				return fmt.Errorf("failed to set shuffle: %w", err)
			}
			color.Green("✓ Shuffle %s", args[0])
			return nil
		})
	},
}

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "List requests that failed to play (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdminClient(func(ctx context.Context, c *requestline.Client) error {
			letters, err := c.DeadLetters(ctx, deadLetterLimit)
			if err != nil {
				return fmt.Errorf("failed to list dead letters: %w", err)
			}
			if len(letters) == 0 {
				fmt.Println("No failed requests")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Failed", "Track", "Client", "Attempts", "Reason"})
			for _, dl := range letters {
				t.AppendRow(table.Row{
					dl.FailedAt.Local().Format("Jan 2 15:04"),
					fmt.Sprintf("%s - %s", dl.Artist, dl.TrackName),
					dl.ClientID,
					dl.Attempts,
					color.RedString("%s", dl.Reason),
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(skipCmd, volumeCmd, shuffleCmd, deadLettersCmd)
	deadLettersCmd.Flags().IntVarP(&deadLetterLimit, "limit", "n", 50, "Maximum entries to show")
}
