package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPlaylistURI is the fallback playlist played when nothing is queued
const DefaultPlaylistURI = "spotify:playlist:2jF7p8SmudDRLCSrfewcrT"

// Config holds application configuration
type Config struct {
	// Address the serve daemon listens on
	// Default: ":8080"
	ListenAddr string

	// Directory for the database
	// Default: ~/.local/share/requestline
	DataDir string

	// How often the daemon polls the device for now-playing updates
	PollInterval time.Duration

	// Bearer token guarding admin endpoints. Empty disables them.
	AdminToken string

	// Base URL of the serve daemon, used by CLI commands
	ServerURL string

	Spotify  SpotifyConfig
	Playlist PlaylistConfig
	Queue    QueueConfig
	Cooldown CooldownConfig
	History  HistoryConfig
	Now      NowConfig
}

// SpotifyConfig holds Spotify application credentials
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	DeviceID     string
}

// PlaylistConfig holds the fallback playlist settings
type PlaylistConfig struct {
	DefaultURI string
}

// QueueConfig controls queue playback
type QueueConfig struct {
	MaxAttempts      int
	RetryDelay       time.Duration
	MaxTrackDuration time.Duration // 0 disables the limit
}

// CooldownConfig controls per-client cooldowns
type CooldownConfig struct {
	Track   bool
	Enforce bool
}

// HistoryConfig controls history retention
type HistoryConfig struct {
	Retention time.Duration // 0 keeps history forever
}

// NowConfig controls the output of the now command
type NowConfig struct {
	// Go template with .Name, .Artist, .Album, .Message, .Duration, .Position
	Format string

	// Fixed output width in display columns, 0 disables padding
	Width int

	Marquee          bool
	MarqueeSpeed     int // characters per second
	MarqueeSeparator string
}

// Load reads configuration from .env, the config file and environment
func Load() (*Config, error) {
	// .env is optional; existing environment variables win
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables, e.g. REQUESTLINE_SPOTIFY_CLIENT_ID
	v.SetEnvPrefix("REQUESTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("admin_token", "")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("spotify.client_id", "")
	v.SetDefault("spotify.client_secret", "")
	v.SetDefault("spotify.redirect_uri", "http://localhost:8080/callback")
	v.SetDefault("spotify.device_id", "")
	v.SetDefault("playlist.default_uri", DefaultPlaylistURI)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.retry_delay", "5s")
	v.SetDefault("queue.max_track_duration", "0s")
	v.SetDefault("cooldown.track", true)
	v.SetDefault("cooldown.enforce", false)
	v.SetDefault("history.retention", "720h")
	v.SetDefault("now.format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("now.width", 0)
	v.SetDefault("now.marquee", false)
	v.SetDefault("now.marquee_speed", 2)
	v.SetDefault("now.marquee_separator", " • ")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ListenAddr:   v.GetString("listen_addr"),
		DataDir:      v.GetString("data_dir"),
		PollInterval: v.GetDuration("poll_interval"),
		AdminToken:   v.GetString("admin_token"),
		ServerURL:    v.GetString("server_url"),
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
			RedirectURI:  v.GetString("spotify.redirect_uri"),
			DeviceID:     v.GetString("spotify.device_id"),
		},
		Playlist: PlaylistConfig{
			DefaultURI: v.GetString("playlist.default_uri"),
		},
		Queue: QueueConfig{
			MaxAttempts:      v.GetInt("queue.max_attempts"),
			RetryDelay:       v.GetDuration("queue.retry_delay"),
			MaxTrackDuration: v.GetDuration("queue.max_track_duration"),
		},
		Cooldown: CooldownConfig{
			Track:   v.GetBool("cooldown.track"),
			Enforce: v.GetBool("cooldown.enforce"),
		},
		History: HistoryConfig{
			Retention: v.GetDuration("history.retention"),
		},
		Now: NowConfig{
			Format:           v.GetString("now.format"),
			Width:            v.GetInt("now.width"),
			Marquee:          v.GetBool("now.marquee"),
			MarqueeSpeed:     v.GetInt("now.marquee_speed"),
			MarqueeSeparator: v.GetString("now.marquee_separator"),
		},
	}
}

// DatabasePath returns the SQLite database location inside DataDir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "requestline.db")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "requestline")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "requestline")
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("listen_addr", c.ListenAddr)
	v.Set("data_dir", c.DataDir)
	v.Set("poll_interval", c.PollInterval.String())
	v.Set("admin_token", c.AdminToken)
	v.Set("server_url", c.ServerURL)
	v.Set("spotify.client_id", c.Spotify.ClientID)
	v.Set("spotify.client_secret", c.Spotify.ClientSecret)
	v.Set("spotify.redirect_uri", c.Spotify.RedirectURI)
	v.Set("spotify.device_id", c.Spotify.DeviceID)
	v.Set("playlist.default_uri", c.Playlist.DefaultURI)
	v.Set("queue.max_attempts", c.Queue.MaxAttempts)
	v.Set("queue.retry_delay", c.Queue.RetryDelay.String())
	v.Set("queue.max_track_duration", c.Queue.MaxTrackDuration.String())
	v.Set("cooldown.track", c.Cooldown.Track)
	v.Set("cooldown.enforce", c.Cooldown.Enforce)
	v.Set("history.retention", c.History.Retention.String())
	v.Set("now.format", c.Now.Format)
	v.Set("now.width", c.Now.Width)
	v.Set("now.marquee", c.Now.Marquee)
	v.Set("now.marquee_speed", c.Now.MarqueeSpeed)
	v.Set("now.marquee_separator", c.Now.MarqueeSeparator)

	// Write to file
	return v.WriteConfigAs(configFile)
}
