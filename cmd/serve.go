package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/internal/config"
	"github.com/jfmyers9/requestline/internal/daemon"
)

var (
	serveLogFile  string
	serveLogLevel string
	serveDataDir  string
	serveListen   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the request queue daemon",
	Long: `Run the daemon that owns the shared Spotify device.

The daemon will:
- Serve the HTTP API and websocket event stream
- Queue song requests and play them in order
- Resume the shuffled default playlist when the queue is empty
- Retry failed plays and dead-letter requests that keep failing
- Poll the device and publish now-playing changes
- Handle graceful shutdown on SIGINT/SIGTERM

Until an admin visits /auth, requests are rejected with 503.

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for systemd).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Log file path (default: stderr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Data directory for the database (default: ~/.local/share/requestline)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: listen_addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return fmt.Errorf("Spotify credentials not configured. Run 'requestline auth' first")
	}

	if serveDataDir != "" {
		cfg.DataDir = serveDataDir
	}
	if serveListen != "" {
		cfg.ListenAddr = serveListen
	}

	logger := setupLogger(serveLogFile, serveLogLevel)

	logger.Info().
		Str("version", version).
		Str("data_dir", cfg.DataDir).
		Bool("cooldown_enforced", cfg.Cooldown.Enforce).
		Msg("Starting requestline daemon")

	if cfg.AdminToken == "" {
		logger.Warn().Msg("No admin token configured, admin endpoints are disabled")
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	runErr := d.Run()

	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		if runErr == nil {
			runErr = err
		}
	}

	if runErr != nil {
		return fmt.Errorf("daemon error: %w", runErr)
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
