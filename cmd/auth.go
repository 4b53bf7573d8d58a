package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/requestline/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure Spotify credentials",
	Long: `Configure the Spotify application used to control playback.

This command will guide you through setup:
1. You'll be prompted for your Spotify client ID and secret
2. An admin token is generated if none is configured
3. Settings are saved to your config file
4. A URL is printed; open it while the daemon runs to authorize playback

Create an application at: https://developer.spotify.com/dashboard
and add the redirect URI shown below to it.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	color.New(color.FgCyan, color.Bold).Println("Spotify Authentication")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("Create an application at: https://developer.spotify.com/dashboard")
	fmt.Printf("Redirect URI: %s\n", cfg.Spotify.RedirectURI)
	fmt.Println()

	// Check if we already have credentials
	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		fmt.Printf("Found existing client ID: %s\n", cfg.Spotify.ClientID)
		fmt.Print("\nUse existing credentials? [Y/n]: ")
		response, err := reader.ReadString('\n')
		if err != nil {
			response = "y"
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			cfg.Spotify.ClientID = ""
			cfg.Spotify.ClientSecret = ""
		}
	}

	if cfg.Spotify.ClientID == "" {
		fmt.Print("Enter your Spotify client ID: ")
		id, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client ID: %w", err)
		}
		cfg.Spotify.ClientID = strings.TrimSpace(id)
	}

	if cfg.Spotify.ClientSecret == "" {
		fmt.Print("Enter your Spotify client secret: ")
		secret, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client secret: %w", err)
		}
		cfg.Spotify.ClientSecret = strings.TrimSpace(secret)
	}

	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return fmt.Errorf("client ID and secret are required")
	}

	if cfg.AdminToken == "" {
		cfg.AdminToken = uuid.NewString()
		fmt.Println("\nGenerated a new admin token.")
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("\n✓ Credentials saved to %s/config.yaml\n", config.GetConfigDir())

	fmt.Println("\nStart the daemon with 'requestline serve', then open:")
	fmt.Printf("\n  %s\n\n", authURL(cfg.ServerURL, cfg.AdminToken))
	fmt.Println("Log in with the Spotify account that owns the shared device.")

	return nil
}

// authURL is the daemon's login link with the admin token attached
func authURL(server, token string) string {
	return strings.TrimRight(server, "/") + "/auth?token=" + url.QueryEscape(token)
}
