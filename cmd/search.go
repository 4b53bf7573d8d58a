package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchLimit int

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search for tracks",
	Long: `Search the Spotify catalog for tracks.

The ID column can be passed to 'requestline request'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results (1-50)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	tracks, err := client.Search(ctx, strings.Join(args, " "), searchLimit)
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}

	if len(tracks) == 0 {
		fmt.Println("No tracks found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Track", "Artist", "Length", "ID"})

	for i, track := range tracks {
		t.AppendRow(table.Row{
			i + 1,
			color.New(color.Bold).Sprint(track.Name),
			track.Artist,
			formatClock(track.Duration()),
			color.HiBlackString("%s", track.ID),
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()

	return nil
}
