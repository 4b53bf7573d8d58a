package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// cooldownCmd represents the cooldown command
var cooldownCmd = &cobra.Command{
	Use:   "cooldown",
	Short: "Show when you can request again",
	RunE:  runCooldown,
}

func init() {
	rootCmd.AddCommand(cooldownCmd)
}

func runCooldown(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	cd, err := client.Cooldown(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cooldown: %w", err)
	}

	if cd.SecondsRemaining <= 0 {
		color.Green("✓ You can request a song now")
		return nil
	}

	remaining := time.Duration(cd.SecondsRemaining) * time.Second
	if cd.Enforced {
		color.Yellow("You can request again in %s", remaining)
	} else {
		fmt.Printf("Your last request is still playing out (%s), but cooldowns are not enforced\n", remaining)
	}
	return nil
}
