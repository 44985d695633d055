package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string = "http://localhost:8787"
	output string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "relayctl - Poke a running Campfire realtime relay",
	Long: `relayctl provides command-line access to a running relay instance.
Push webhook events to a connected user and inspect connection stats.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "Relay server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
