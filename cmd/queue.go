package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show pending requests",
	RunE:  runQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	items, err := client.Queue(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("Queue is empty, the default playlist is playing")
		return nil
	}

	renderQueue(items)
	return nil
}

func renderQueue(items []requestline.QueueItem) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Track", "Artist", "Length", "Message"})

	var total time.Duration
	for _, item := range items {
		d := time.Duration(item.DurationMs) * time.Millisecond
		total += d

		name := color.New(color.Bold).Sprint(item.TrackName)
		if item.Attempts > 0 {
			name += color.RedString(" (retry %d)", item.Attempts)
		}

		t.AppendRow(table.Row{item.Position, name, item.Artist, formatClock(d), item.Message})
	}

	t.AppendFooter(table.Row{"", "", "Total", formatClock(total), ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
