package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	// Try Unix milliseconds (integer) first
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Built-in frame types handled by the connection itself, never relayed
const (
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
)

// Relay events: client -> server -> client
const (
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
	EventMessageSeen = "message_seen"
)

// Webhook events: backend -> server -> client
const (
	EventNewMessage      = "new_message"
	EventNewNotification = "new_notification"
	EventNewFollower     = "new_follower"
	EventPostLiked       = "post_liked"
	EventMessageDeleted  = "message_deleted"
)

// DefaultRelayEvents returns the built-in client-to-client event vocabulary
func DefaultRelayEvents() []string {
	return []string{EventTyping, EventStopTyping, EventMessageSeen}
}

// DefaultWebhookEvents returns the built-in server-to-client event vocabulary
func DefaultWebhookEvents() []string {
	return []string{
		EventNewMessage,
		EventNewNotification,
		EventNewFollower,
		EventPostLiked,
		EventMessageDeleted,
	}
}

// AllowList is a closed set of permitted event names. Anything outside
// the set is dropped, never forwarded.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from event names
func NewAllowList(events ...string) AllowList {
	a := make(AllowList, len(events))
	for _, e := range events {
		if e == "" {
			continue
		}
		a[e] = struct{}{}
	}
	return a
}

// Allows reports whether the event name is a member of the set
func (a AllowList) Allows(event string) bool {
	_, ok := a[event]
	return ok
}

// Message represents a WebSocket frame
type Message struct {
	// Type identifies the frame type for routing: a built-in type or a
	// relay event name
	Type string `json:"type"`

	// Payload contains the frame-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// RelayPayload is the envelope a client sends with a relay event. The
// sender identity never comes from here; it is taken from the sender's
// authenticated connection.
type RelayPayload struct {
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

// ForwardPayload is the envelope delivered to the target's connections
type ForwardPayload struct {
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// ErrorPayload represents an error frame payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping frame payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong frame payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// SystemPayload represents system frame payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
