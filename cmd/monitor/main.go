// Command monitor watches the airdrop feed and pushes notifications for new
// events, confirmed details and imminent starts.
//
// Usage:
//
//	airdrop-monitor run
//	airdrop-monitor watch --interval 1m
//	airdrop-monitor events --date 2024-01-01
//	airdrop-monitor changes --token TKN --date 2024-01-01 --phase 1
//	airdrop-monitor changes --orphaned
//	airdrop-monitor forget --token TKN --date 2024-01-01 --phase 1
//	airdrop-monitor bot
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "airdrop-monitor",
		Short:        "Airdrop feed monitor",
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(changesCmd())
	root.AddCommand(forgetCmd())
	root.AddCommand(botCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
