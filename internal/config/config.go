// Package config loads relay service configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-driven setting for the relay service.
// Allow-lists default to the event vocabulary the Campfire web app uses;
// deployments can override them without a rebuild.
type Config struct {
	Port     string `envconfig:"PORT" default:"8787"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE" default:"relay.log"`

	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET" required:"true"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// RelayEvents is the set of event names a connected client may relay
	// to another user. WebhookEvents is the separate, server-originated
	// vocabulary the backend may push over POST /webhook.
	RelayEvents   []string `envconfig:"RELAY_EVENTS" default:"typing,stop_typing,message_seen"`
	WebhookEvents []string `envconfig:"WEBHOOK_EVENTS" default:"new_message,new_notification,new_follower,post_liked,message_deleted"`

	RateLimitPerSecond int `envconfig:"WS_RATE_LIMIT_PER_SECOND" default:"10"`
	RateLimitBurst     int `envconfig:"WS_RATE_LIMIT_BURST" default:"20"`

	Environment    string  `envconfig:"ENVIRONMENT" default:"development"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"localhost:4318"`
	SamplingRate   float64 `envconfig:"TRACE_SAMPLING_RATE" default:"1.0"`
}

// Load populates Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
