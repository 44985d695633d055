package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var statusToken string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection stats for a running relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusToken == "" {
			statusToken = os.Getenv("RELAY_TOKEN")
		}
		if statusToken == "" {
			return fmt.Errorf("auth token required: use --token or RELAY_TOKEN")
		}

		req, err := http.NewRequest(http.MethodGet, apiURL+"/api/v1/ws/stats", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+statusToken)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("stats request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("stats request returned %s: %s", resp.Status, string(body))
		}

		if output == "json" {
			fmt.Println(string(body))
			return nil
		}

		var stats struct {
			WebSocket   map[string]int64 `json:"websocket"`
			Connections int              `json:"connections"`
			OnlineUsers []string         `json:"online_users"`
		}
		if err := json.Unmarshal(body, &stats); err != nil {
			return err
		}

		fmt.Printf("connections: %d\n", stats.Connections)
		fmt.Printf("online users: %d\n", len(stats.OnlineUsers))
		for _, u := range stats.OnlineUsers {
			fmt.Printf("  - %s\n", u)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusToken, "token", "", "Bearer token (defaults to RELAY_TOKEN env var)")
}
