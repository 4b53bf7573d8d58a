/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/internal/config"
	"github.com/jfmyers9/requestline/pkg/requestline"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	serverURL  string
	adminToken string
	debug      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "requestline",
	Short: "Song request queue for a shared Spotify session",
	Long: `requestline lets everyone in the room queue songs on one shared Spotify device.

The serve command runs the daemon: it plays requests in order and falls
back to a shuffled default playlist when the queue is empty.

The other commands talk to a running daemon over HTTP: request songs,
search the catalog, inspect the queue, and (with the admin token) skip,
change volume or toggle shuffle.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Daemon URL (default: server_url from config)")
	rootCmd.PersistentFlags().StringVar(&adminToken, "admin-token", "", "Admin token (default: admin_token from config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log HTTP calls to stderr")
}

// debugLogger adapts zerolog to the client's Logger interface
type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// newClient builds an API client from config and global flags
func newClient() (*requestline.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	url := cfg.ServerURL
	if serverURL != "" {
		url = serverURL
	}
	token := cfg.AdminToken
	if adminToken != "" {
		token = adminToken
	}

	clientCfg := requestline.Config{
		BaseURL:    url,
		AdminToken: token,
	}
	if debug {
		clientCfg.Logger = debugLogger{logger: setupLogger("", "debug")}
	}

	client, err := requestline.NewClient(clientCfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// withAdminClient runs fn with a client that carries the admin token
func withAdminClient(fn func(ctx context.Context, c *requestline.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, _, err := newClient()
	if err != nil {
		return err
	}
	if !client.HasAdminToken() {
		return fmt.Errorf("admin token not configured (run 'requestline auth' or pass --admin-token)")
	}
	return fn(ctx, client)
}
