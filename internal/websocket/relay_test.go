package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a registered-but-unwired client: no transport,
// frames land in the send buffer where the test can read them.
func newTestClient(hub *Hub, userID, sessionID string) *Client {
	return NewClient(hub, nil, nil, userID, sessionID)
}

func newTestRelay(hub *Hub) *Relay {
	return NewRelay(hub, NewAllowList(DefaultRelayEvents()...))
}

// readFrame pops one buffered frame off a client's send channel
func readFrame(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	default:
		t.Fatal("expected a buffered frame, got none")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("expected no frame, got: %s", string(data))
	default:
	}
}

func relayEnvelope(event, targetUserID string, data string) *Message {
	return NewMessage(event, RelayPayload{
		UserID: targetUserID,
		Data:   json.RawMessage(data),
	})
}

func TestRelayForwardsAllowedEvent(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	sender := newTestClient(hub, "user-42", "sess-a")
	target := newTestClient(hub, "user-43", "sess-b")
	hub.Register(sender)
	hub.Register(target)

	relay.Dispatch(sender, relayEnvelope(EventTyping, "user-43", `{"isTyping":true}`))

	msg := readFrame(t, target)
	assert.Equal(t, EventTyping, msg.Type)

	var fwd ForwardPayload
	require.NoError(t, msg.ParsePayload(&fwd))
	assert.Equal(t, "user-42", fwd.From)
	assert.JSONEq(t, `{"isTyping":true}`, string(fwd.Data))

	// Fire-and-forget: the sender gets no ack
	assertNoFrame(t, sender)
}

func TestRelayDropsDisallowedEvent(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	sender := newTestClient(hub, "user-42", "sess-a")
	target := newTestClient(hub, "user-43", "sess-b")
	hub.Register(sender)
	hub.Register(target)

	// Server-originated and unknown event names are both rejected
	relay.Dispatch(sender, relayEnvelope(EventNewMessage, "user-43", `{"x":1}`))
	relay.Dispatch(sender, relayEnvelope("delete_account", "user-43", `{"x":1}`))

	assertNoFrame(t, target)
	// No error frame back to the sender either
	assertNoFrame(t, sender)
}

func TestRelayDropsMalformedPayload(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	sender := newTestClient(hub, "user-42", "sess-a")
	target := newTestClient(hub, "user-43", "sess-b")
	hub.Register(sender)
	hub.Register(target)

	// Missing target user
	relay.Dispatch(sender, relayEnvelope(EventTyping, "", `{"isTyping":true}`))
	// Missing data
	relay.Dispatch(sender, NewMessage(EventTyping, RelayPayload{UserID: "user-43"}))
	// Payload that is not an object at all
	relay.Dispatch(sender, NewMessage(EventTyping, "not-an-object"))
	// No payload
	relay.Dispatch(sender, &Message{Type: EventTyping})

	assertNoFrame(t, target)
	assertNoFrame(t, sender)
}

func TestRelaySelfDeliverySuppression(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	// Same user on two devices
	phone := newTestClient(hub, "user-42", "sess-phone")
	laptop := newTestClient(hub, "user-42", "sess-laptop")
	hub.Register(phone)
	hub.Register(laptop)

	// Event targeting one's own user id reaches the other device only
	relay.Dispatch(phone, relayEnvelope(EventMessageSeen, "user-42", `{"messageId":"m1"}`))

	msg := readFrame(t, laptop)
	assert.Equal(t, EventMessageSeen, msg.Type)
	assertNoFrame(t, phone)
}

func TestRelayFansOutToAllConnections(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	sender := newTestClient(hub, "user-42", "sess-a")
	hub.Register(sender)

	targets := make([]*Client, 3)
	for i := range targets {
		targets[i] = newTestClient(hub, "user-43", "sess")
		hub.Register(targets[i])
	}

	relay.Dispatch(sender, relayEnvelope(EventStopTyping, "user-43", `{}`))

	// Exactly one copy per connection
	for _, target := range targets {
		msg := readFrame(t, target)
		assert.Equal(t, EventStopTyping, msg.Type)
		assertNoFrame(t, target)
	}
}

func TestRelayNoRecipient(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	sender := newTestClient(hub, "user-42", "sess-a")
	hub.Register(sender)

	// Target is offline: the event evaporates without error
	relay.Dispatch(sender, relayEnvelope(EventTyping, "user-99", `{"isTyping":true}`))

	assertNoFrame(t, sender)
	assert.Equal(t, int64(0), hub.Snapshot().MessagesSent)
}

func TestRelaySenderIdentityNotSpoofable(t *testing.T) {
	hub := NewHub()
	relay := newTestRelay(hub)

	sender := newTestClient(hub, "user-42", "sess-a")
	target := newTestClient(hub, "user-43", "sess-b")
	hub.Register(sender)
	hub.Register(target)

	// A "from" field inside the envelope is ignored; the authenticated
	// identity wins
	relay.Dispatch(sender, NewMessage(EventTyping, map[string]interface{}{
		"userId": "user-43",
		"from":   "user-1337",
		"data":   map[string]bool{"isTyping": true},
	}))

	msg := readFrame(t, target)
	var fwd ForwardPayload
	require.NoError(t, msg.ParsePayload(&fwd))
	assert.Equal(t, "user-42", fwd.From)
}

func TestSendToUserExceptCounts(t *testing.T) {
	hub := NewHub()

	a := newTestClient(hub, "user-42", "sess-a")
	b := newTestClient(hub, "user-42", "sess-b")
	hub.Register(a)
	hub.Register(b)

	msg := NewMessage(EventNewMessage, map[string]string{"id": "m1"})

	assert.Equal(t, 2, hub.SendToUser("user-42", msg))
	assert.Equal(t, 1, hub.SendToUserExcept("user-42", a.ID, msg))
	assert.Equal(t, 0, hub.SendToUser("user-99", msg))
}
