package websocket

import (
	"github.com/campfire-social/realtime/internal/logger"
	"github.com/campfire-social/realtime/internal/metrics"
	"go.uber.org/zap"
)

// Relay validates client-originated events against the allow-list and
// forwards them to the target user's connections. Delivery is
// fire-and-forget: the sender is never told whether the event name was
// permitted, the payload parsed, or the target reachable.
type Relay struct {
	hub     *Hub
	allowed AllowList
}

// NewRelay creates a Relay over the given hub and permitted event set
func NewRelay(hub *Hub, allowed AllowList) *Relay {
	return &Relay{hub: hub, allowed: allowed}
}

// Dispatch handles one inbound event from an authenticated sender.
// Unknown event names and malformed envelopes are dropped silently; the
// default for anything outside the allow-list is "ignore", never
// "forward".
func (r *Relay) Dispatch(sender *Client, message *Message) {
	if !r.allowed.Allows(message.Type) {
		r.drop(sender, message.Type, "disallowed_event")
		return
	}

	var env RelayPayload
	if err := message.ParsePayload(&env); err != nil || env.UserID == "" || len(env.Data) == 0 {
		r.drop(sender, message.Type, "malformed_payload")
		return
	}

	// Sender identity comes from the authenticated connection, never
	// from the payload
	forward := NewMessage(message.Type, ForwardPayload{
		From: sender.UserID,
		Data: env.Data,
	})

	sent := r.hub.SendToUserExcept(env.UserID, sender.ID, forward)
	if sent == 0 {
		r.drop(sender, message.Type, "no_recipient")
		return
	}

	metrics.Get().RelayEventsTotal.WithLabelValues(message.Type).Inc()
	logger.Log.Debug("Relayed event",
		zap.String("event", message.Type),
		zap.String("from", sender.UserID),
		zap.String("to", env.UserID),
		zap.Int("connections", sent),
	)
}

func (r *Relay) drop(sender *Client, event, reason string) {
	metrics.Get().RelayDroppedTotal.WithLabelValues(reason).Inc()
	logger.Log.Debug("Dropped event",
		zap.String("event", event),
		zap.String("from", sender.UserID),
		zap.String("reason", reason),
	)
}
