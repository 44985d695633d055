package websocket

import (
	"net/http"
	"time"

	"github.com/campfire-social/realtime/internal/auth"
	"github.com/campfire-social/realtime/internal/logger"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub      *Hub
	relay    *Relay
	verifier auth.TokenVerifier
	origins  []string
}

// NewHandler creates a new WebSocket handler. origins is the list of
// origin patterns accepted during the upgrade; a single "*" disables
// origin checking.
func NewHandler(hub *Hub, relay *Relay, verifier auth.TokenVerifier, origins []string) *Handler {
	return &Handler{
		hub:      hub,
		relay:    relay,
		verifier: verifier,
		origins:  origins,
	}
}

// HandleWebSocket handles WebSocket upgrade requests
// Authentication is done via JWT token in query param: ?token=...
// Or via Authorization header: Bearer <token>
func (h *Handler) HandleWebSocket(c *gin.Context) {
	identity, err := h.verifier.Verify(auth.BearerToken(c.Request))
	if err != nil {
		logger.Log.Warn("WebSocket auth failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if len(h.origins) == 1 && h.origins[0] == "*" {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.origins
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, h.relay, conn, identity.UserID, identity.SessionID)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to Campfire realtime!",
		Data: map[string]interface{}{
			"user_id":     identity.UserID,
			"conn_id":     client.ID,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	// ReadPump blocks until the client disconnects and always
	// unregisters on the way out
	go client.WritePump()
	client.ReadPump()
}

// HandleStats returns hub counters and online users (for monitoring)
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.Snapshot(),
		"connections":  h.hub.Registry().Size(),
		"online_users": h.hub.OnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus checks if specific users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses := make(map[string]bool)
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}
