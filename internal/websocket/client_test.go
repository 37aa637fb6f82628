package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleJoinScopedToAuthorizedRoom(t *testing.T) {
	hub := newTestHub()

	client := newTestClient(hub, "alice")
	client.AllowedRoom = "room-1"

	join := NewSignalMessage(EventJoin, "", nil)
	join.SetRoomID("room-2")
	client.handleJoin(join)

	msg := waitForMessage(t, client, EventError)
	assert.Contains(t, msg.Content, "not authorized")
	assert.Empty(t, hub.RoomUsers("room-2"))

	join.SetRoomID("room-1")
	client.handleJoin(join)

	ack := waitForMessage(t, client, EventRoomJoined)
	assert.Equal(t, "room-1", ack.RoomID)
	assert.Equal(t, []string{"alice"}, hub.RoomUsers("room-1"))
}

func TestHandleRelayOutsideRoom(t *testing.T) {
	hub := newTestHub()

	client := newTestClient(hub, "alice")

	offer := NewSignalMessage(EventOffer, "", map[string]interface{}{"sdp": "v=0"})
	client.handleRelay(offer)

	msg := waitForMessage(t, client, EventError)
	assert.Contains(t, msg.Content, "not in a signaling room")
}

func TestClientMessageRateLimit(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, "alice")

	for i := 0; i < messageRateLimit; i++ {
		assert.True(t, client.checkRateLimit(), "message %d within limit", i+1)
	}
	assert.False(t, client.checkRateLimit())
}
