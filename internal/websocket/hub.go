// Package websocket implements the realtime presence/relay core: the
// connection registry, per-connection pumps, and the event relay.
// Uses github.com/coder/websocket - the modern, context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campfire-social/realtime/internal/logger"
	"github.com/campfire-social/realtime/internal/metrics"
	"go.uber.org/zap"
)

// Hub owns the set of live clients and the connection registry, and
// fans messages out to a user's connections. Every operation is
// synchronous and in-memory; nothing here blocks on I/O.
type Hub struct {
	// Identity mapping for live connections
	registry *Registry

	// Live clients by connection id
	clients map[string]*Client

	// Mutex for client map access
	mu sync.RWMutex

	// Counters
	stats *Stats

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc

	// Rate limiter config
	rateLimitConfig RateLimitConfig
}

// Stats tracks hub counters
type Stats struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	// MaxMessagesPerSecond per client
	MaxMessagesPerSecond int
	// BurstSize allows short bursts above the rate
	BurstSize int
	// Window for rate calculation
	Window time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
		Window:               time.Second,
	}
}

// NewHub creates a new Hub instance with an empty registry
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:        NewRegistry(),
		clients:         make(map[string]*Client),
		stats:           &Stats{},
		ctx:             ctx,
		cancel:          cancel,
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// Registry exposes the connection registry for diagnostics
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register adds an authenticated client to the hub. Called exactly once
// per connection, immediately after the handshake succeeds.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.registry.Put(client.ID, client.UserID, client.SessionID)

	h.stats.TotalConnections.Add(1)
	h.stats.ActiveConnections.Add(1)
	m := metrics.Get()
	m.WSConnectionsTotal.Inc()
	m.WSActiveConnections.Inc()

	logger.Log.Info("Client connected",
		logger.WithUserID(client.UserID),
		logger.WithConnID(client.ID),
		zap.String("session_id", client.SessionID),
		zap.Int("active", h.registry.Size()),
	)
}

// Unregister removes a client from the hub. Idempotent: called from the
// read pump on disconnect and again from shutdown paths without harm.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	h.mu.Unlock()

	h.registry.Remove(client.ID)
	client.Close()

	h.stats.ActiveConnections.Add(-1)
	metrics.Get().WSActiveConnections.Dec()

	logger.Log.Info("Client disconnected",
		logger.WithUserID(client.UserID),
		logger.WithConnID(client.ID),
		zap.String("session_id", client.SessionID),
		zap.Int("active", h.registry.Size()),
	)
}

// SendToUser forwards a message to every live connection of a user.
// Returns the number of connections found; zero means the user is not
// currently connected.
func (h *Hub) SendToUser(userID string, message *Message) int {
	return h.SendToUserExcept(userID, "", message)
}

// SendToUserExcept forwards a message to every live connection of a user
// except the one identified by exceptConnID (self-delivery suppression
// for relayed events). Delivery is best-effort: a client whose send
// buffer is full is dropped and scheduled for unregistration.
func (h *Hub) SendToUserExcept(userID, exceptConnID string, message *Message) int {
	targets := h.registry.FindByUser(userID)
	if len(targets) == 0 {
		return 0
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Error marshaling message", zap.Error(err))
		h.stats.Errors.Add(1)
		return 0
	}

	sent := 0
	for _, connID := range targets {
		if connID == exceptConnID {
			continue
		}

		h.mu.RLock()
		client := h.clients[connID]
		h.mu.RUnlock()
		if client == nil {
			continue
		}

		if client.enqueue(data) {
			h.stats.MessagesSent.Add(1)
		} else {
			// Client's buffer is full, mark for removal
			h.stats.ConnectionsDropped.Add(1)
			go h.Unregister(client)
		}
		sent++
	}
	return sent
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	return len(h.registry.FindByUser(userID)) > 0
}

// ConnectionCount returns the number of connections for a user
func (h *Hub) ConnectionCount(userID string) int {
	return len(h.registry.FindByUser(userID))
}

// OnlineUsers returns a list of all online user IDs
func (h *Hub) OnlineUsers() []string {
	return h.registry.Users()
}

// Snapshot returns current hub counters
func (h *Hub) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalConnections:   h.stats.TotalConnections.Load(),
		ActiveConnections:  h.stats.ActiveConnections.Load(),
		MessagesReceived:   h.stats.MessagesReceived.Load(),
		MessagesSent:       h.stats.MessagesSent.Load(),
		Errors:             h.stats.Errors.Load(),
		ConnectionsDropped: h.stats.ConnectionsDropped.Load(),
	}
}

// StatsSnapshot is a point-in-time snapshot of hub counters
type StatsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// String implements Stringer for StatsSnapshot
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		s.ActiveConnections, s.TotalConnections,
		s.MessagesReceived, s.MessagesSent,
		s.Errors, s.ConnectionsDropped,
	)
}

// Shutdown closes every client connection and clears the registry
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("WebSocket hub shutting down")

	h.cancel()

	shutdownMsg := NewMessage(MessageTypeSystem, SystemPayload{
		Event: "server_shutdown",
	})
	data, _ := json.Marshal(shutdownMsg)

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.enqueue(data)
		client.Close()
		h.registry.Remove(client.ID)
	}
	h.stats.ActiveConnections.Store(0)

	logger.Log.Info("WebSocket hub shutdown complete",
		zap.Int("closed", len(clients)),
	)
	return ctx.Err()
}

// SetRateLimitConfig updates the rate limiting configuration
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
