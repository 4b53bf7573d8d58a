package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.ListenAddr)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("expected 5s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.Playlist.DefaultURI != DefaultPlaylistURI {
		t.Errorf("unexpected default playlist %s", cfg.Playlist.DefaultURI)
	}
	if cfg.Queue.MaxAttempts != 3 {
		t.Errorf("expected 3 max attempts, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.MaxTrackDuration != 0 {
		t.Errorf("expected no track limit, got %v", cfg.Queue.MaxTrackDuration)
	}
	if !cfg.Cooldown.Track || cfg.Cooldown.Enforce {
		t.Errorf("expected cooldown tracked but not enforced, got %+v", cfg.Cooldown)
	}
	if cfg.History.Retention != 30*24*time.Hour {
		t.Errorf("expected 30 day retention, got %v", cfg.History.Retention)
	}

	if cfg.Now.Format != "{{.Artist}} - {{.Name}}" || cfg.Now.MarqueeSpeed != 2 {
		t.Errorf("unexpected now defaults %+v", cfg.Now)
	}

	wantDB := filepath.Join(home, ".local", "share", "requestline", "requestline.db")
	if cfg.DatabasePath() != wantDB {
		t.Errorf("expected %s, got %s", wantDB, cfg.DatabasePath())
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "requestline")); err != nil {
		t.Errorf("expected config dir to be created: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".config", "requestline")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	content := `
listen_addr: ":9090"
spotify:
  client_id: file-client
  device_id: kitchen
queue:
  max_track_duration: 10m
cooldown:
  enforce: true
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("REQUESTLINE_SPOTIFY_CLIENT_ID", "env-client")
	t.Setenv("REQUESTLINE_ADMIN_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("expected file value :9090, got %s", cfg.ListenAddr)
	}
	if cfg.Spotify.ClientID != "env-client" {
		t.Errorf("expected env to override file, got %s", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.DeviceID != "kitchen" {
		t.Errorf("expected kitchen, got %s", cfg.Spotify.DeviceID)
	}
	if cfg.AdminToken != "secret" {
		t.Errorf("expected admin token from env, got %q", cfg.AdminToken)
	}
	if cfg.Queue.MaxTrackDuration != 10*time.Minute {
		t.Errorf("expected 10m limit, got %v", cfg.Queue.MaxTrackDuration)
	}
	if !cfg.Cooldown.Enforce {
		t.Error("expected enforcement from file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	cfg.Spotify.ClientID = "saved-client"
	cfg.Queue.RetryDelay = 42 * time.Second
	if err := cfg.Save(); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Spotify.ClientID != "saved-client" {
		t.Errorf("expected saved client id, got %s", loaded.Spotify.ClientID)
	}
	if loaded.Queue.RetryDelay != 42*time.Second {
		t.Errorf("expected 42s, got %v", loaded.Queue.RetryDelay)
	}
}
