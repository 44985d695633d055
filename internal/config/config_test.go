package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "relay.log", cfg.LogFile)
	assert.Equal(t, "jwt-secret", cfg.JWTSecret)
	assert.Equal(t, "hook-secret", cfg.WebhookSecret)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"typing", "stop_typing", "message_seen"}, cfg.RelayEvents)
	assert.Equal(t,
		[]string{"new_message", "new_notification", "new_follower", "post_liked", "message_deleted"},
		cfg.WebhookEvents)
	assert.Equal(t, 10, cfg.RateLimitPerSecond)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("WEBHOOK_SECRET", "hook-secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("RELAY_EVENTS", "typing,cursor_moved")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://staging.example.com")
	t.Setenv("WS_RATE_LIMIT_PER_SECOND", "50")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"typing", "cursor_moved"}, cfg.RelayEvents)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://staging.example.com"},
		cfg.AllowedOrigins)
	assert.Equal(t, 50, cfg.RateLimitPerSecond)
	assert.Equal(t, "production", cfg.Environment)
}
