package websocket

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/campfire-social/realtime/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub)
	assert.NotNil(t, hub.registry)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.stats)
	assert.Equal(t, 0, hub.Registry().Size())
}

func TestRateLimiter(t *testing.T) {
	// Create a rate limiter allowing 5 per second with burst of 10
	rl := NewRateLimiter(5, 10)

	// Should allow first 10 requests (burst)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "Request %d should be allowed", i+1)
	}

	// Next request should be denied (no tokens left)
	assert.False(t, rl.Allow(), "Request 11 should be denied")

	// After waiting, should be allowed again
	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow(), "Request after wait should be allowed")
}

func TestDefaultRateLimitConfig(t *testing.T) {
	config := DefaultRateLimitConfig()

	assert.Equal(t, 10, config.MaxMessagesPerSecond)
	assert.Equal(t, 20, config.BurstSize)
	assert.Equal(t, time.Second, config.Window)
}

func TestNewMessage(t *testing.T) {
	payload := map[string]string{"test": "data"}
	msg := NewMessage(EventTyping, payload)

	assert.Equal(t, EventTyping, msg.Type)
	assert.NotNil(t, msg.Payload)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("test_error", "Something went wrong")

	assert.Equal(t, MessageTypeError, msg.Type)

	payload, ok := msg.Payload.(ErrorPayload)
	assert.True(t, ok)
	assert.Equal(t, "test_error", payload.Code)
	assert.Equal(t, "Something went wrong", payload.Message)
}

func TestMessageParsePayload(t *testing.T) {
	msg := NewMessage(MessageTypePing, map[string]interface{}{
		"client_time": float64(1234567890),
	})

	var ping PingPayload
	err := msg.ParsePayload(&ping)
	assert.NoError(t, err)
	assert.Equal(t, int64(1234567890), ping.ClientTime)
}

func TestMessageJSONSerialization(t *testing.T) {
	msg := NewMessage(EventTyping, RelayPayload{
		UserID: "user-43",
		Data:   json.RawMessage(`{"isTyping":true}`),
	})
	msg.ID = "msg-id"

	data, err := json.Marshal(msg)
	assert.NoError(t, err)

	var parsed Message
	err = json.Unmarshal(data, &parsed)
	assert.NoError(t, err)

	assert.Equal(t, EventTyping, parsed.Type)
	assert.Equal(t, "msg-id", parsed.ID)

	var env RelayPayload
	assert.NoError(t, parsed.ParsePayload(&env))
	assert.Equal(t, "user-43", env.UserID)
	assert.JSONEq(t, `{"isTyping":true}`, string(env.Data))
}

func TestAllowList(t *testing.T) {
	a := NewAllowList(DefaultRelayEvents()...)

	assert.True(t, a.Allows(EventTyping))
	assert.True(t, a.Allows(EventStopTyping))
	assert.True(t, a.Allows(EventMessageSeen))

	assert.False(t, a.Allows(EventNewMessage))
	assert.False(t, a.Allows("made_up_event"))
	assert.False(t, a.Allows(""))
}

func TestAllowListSkipsEmptyNames(t *testing.T) {
	a := NewAllowList("typing", "", "message_seen")
	assert.Len(t, a, 2)
	assert.False(t, a.Allows(""))
}

func TestDefaultEventSets(t *testing.T) {
	relay := DefaultRelayEvents()
	webhook := DefaultWebhookEvents()

	assert.NotEmpty(t, relay)
	assert.NotEmpty(t, webhook)

	// The two vocabularies are disjoint: a client may never emit
	// server-originated events
	relaySet := NewAllowList(relay...)
	for _, e := range webhook {
		assert.False(t, relaySet.Allows(e), "webhook event %s must not be relayable", e)
	}
}

func TestHubIsUserOnline(t *testing.T) {
	hub := NewHub()

	assert.False(t, hub.IsUserOnline("user-123"))
	assert.Equal(t, 0, hub.ConnectionCount("user-123"))
	assert.Empty(t, hub.OnlineUsers())
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "user-42", "sess-1")

	hub.Register(client)
	assert.True(t, hub.IsUserOnline("user-42"))
	assert.Equal(t, 1, hub.Registry().Size())
	assert.Equal(t, int64(1), hub.Snapshot().ActiveConnections)

	hub.Unregister(client)
	assert.False(t, hub.IsUserOnline("user-42"))
	assert.Equal(t, 0, hub.Registry().Size())
	assert.Equal(t, int64(0), hub.Snapshot().ActiveConnections)

	// Second unregister is a no-op
	hub.Unregister(client)
	assert.Equal(t, 0, hub.Registry().Size())
	assert.Equal(t, int64(0), hub.Snapshot().ActiveConnections)
}

func TestHubShutdownClearsClients(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "user-1", "s1")
	b := newTestClient(hub, "user-2", "s2")
	hub.Register(a)
	hub.Register(b)

	err := hub.Shutdown(t.Context())
	assert.NoError(t, err)
	assert.Equal(t, 0, hub.Registry().Size())
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
}

func TestStatsSnapshotString(t *testing.T) {
	hub := NewHub()
	str := hub.Snapshot().String()
	assert.Contains(t, str, "connections=0/0")
}
