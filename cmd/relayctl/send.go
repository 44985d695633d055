package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	sendSecret string
	sendUser   string
	sendEvent  string
	sendData   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Push a webhook event to a connected user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendSecret == "" {
			sendSecret = os.Getenv("RELAY_WEBHOOK_SECRET")
		}
		if sendSecret == "" {
			return fmt.Errorf("webhook secret required: use --secret or RELAY_WEBHOOK_SECRET")
		}

		var data json.RawMessage
		if err := json.Unmarshal([]byte(sendData), &data); err != nil {
			return fmt.Errorf("invalid --data JSON: %w", err)
		}

		body, err := json.Marshal(map[string]interface{}{
			"secret": sendSecret,
			"userId": sendUser,
			"event":  sendEvent,
			"data":   data,
		})
		if err != nil {
			return err
		}

		resp, err := http.Post(apiURL+"/webhook", "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if output == "json" {
			fmt.Println(string(respBody))
			return nil
		}

		fmt.Printf("%s %s\n", resp.Status, string(respBody))
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendSecret, "secret", "", "Webhook shared secret (defaults to RELAY_WEBHOOK_SECRET env var)")
	sendCmd.Flags().StringVar(&sendUser, "user", "", "Target user id")
	sendCmd.Flags().StringVar(&sendEvent, "event", "", "Event name (must be webhook allow-listed)")
	sendCmd.Flags().StringVar(&sendData, "data", "{}", "Event payload as JSON")
	_ = sendCmd.MarkFlagRequired("user")
	_ = sendCmd.MarkFlagRequired("event")
}
