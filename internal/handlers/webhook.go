// Package handlers contains the HTTP ingress endpoints of the relay.
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/campfire-social/realtime/internal/logger"
	"github.com/campfire-social/realtime/internal/metrics"
	"github.com/campfire-social/realtime/internal/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler accepts push requests from the application backend and
// forwards them to a user's live connections. The shared secret is its
// sole authentication; this endpoint is for the backend, never for
// end-user clients.
type WebhookHandler struct {
	hub     *websocket.Hub
	secret  string
	allowed websocket.AllowList
}

// NewWebhookHandler creates a WebhookHandler with the configured secret
// and the server-originated event allow-list
func NewWebhookHandler(hub *websocket.Hub, secret string, allowed websocket.AllowList) *WebhookHandler {
	return &WebhookHandler{
		hub:     hub,
		secret:  secret,
		allowed: allowed,
	}
}

type webhookRequest struct {
	Secret string          `json:"secret"`
	UserID string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Handle processes POST /webhook. Validation order: required fields,
// shared secret, event allow-list, then delivery. A target with no live
// connections is a success, not an error.
func (h *WebhookHandler) Handle(c *gin.Context) {
	m := metrics.Get()

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		m.WebhookRequestsTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
		return
	}
	if req.Secret == "" || req.UserID == "" || req.Event == "" || len(req.Data) == 0 {
		m.WebhookRequestsTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
		return
	}

	if h.secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		m.WebhookRequestsTotal.WithLabelValues("forbidden").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or missing secret"})
		return
	}

	if !h.allowed.Allows(req.Event) {
		m.WebhookRequestsTotal.WithLabelValues("forbidden").Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("Event '%s' is not allowed via webhook.", req.Event),
		})
		return
	}

	sent := h.hub.SendToUser(req.UserID, websocket.NewMessage(req.Event, req.Data))
	if sent == 0 {
		m.WebhookRequestsTotal.WithLabelValues("not_connected").Inc()
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("User %s not connected", req.UserID),
		})
		return
	}

	m.WebhookRequestsTotal.WithLabelValues("sent").Inc()
	logger.Log.Info("Webhook event delivered",
		zap.String("event", req.Event),
		logger.WithUserID(req.UserID),
		zap.Int("connections", sent),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent"})
}
