package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	hub := NewHub(time.Hour, 24*time.Hour)
	go hub.Run()
	return hub
}

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		UserKind:    "patient",
		ConnectedAt: time.Now(),
	}
}

func TestJoinRoomReturnsPeers(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")

	peers := hub.JoinRoom(alice, "room-1")
	assert.Empty(t, peers)

	peers = hub.JoinRoom(bob, "room-1")
	require.Len(t, peers, 1)
	assert.Equal(t, "alice", peers[0])

	assert.ElementsMatch(t, []string{"alice", "bob"}, hub.RoomUsers("room-1"))
	assert.Equal(t, 1, hub.RoomCount())
}

func TestJoinRoomSwitchesRooms(t *testing.T) {
	hub := newTestHub()

	client := newTestClient(hub, "alice")
	hub.JoinRoom(client, "room-1")
	hub.JoinRoom(client, "room-2")

	assert.Empty(t, hub.RoomUsers("room-1"))
	assert.Equal(t, []string{"alice"}, hub.RoomUsers("room-2"))
	assert.Equal(t, "room-2", client.GetRoomID())
}

func TestLeaveRoomKeepsRoomAlive(t *testing.T) {
	hub := newTestHub()

	client := newTestClient(hub, "alice")
	hub.JoinRoom(client, "room-1")
	hub.LeaveRoom(client)

	// An emptied room stays registered until the sweep ages it out
	assert.Equal(t, 1, hub.RoomCount())
	assert.Empty(t, hub.RoomUsers("room-1"))
	assert.Equal(t, "", client.GetRoomID())
}

func TestSweepRemovesAbandonedRooms(t *testing.T) {
	hub := newTestHub()
	now := time.Now()

	client := newTestClient(hub, "alice")
	hub.JoinRoom(client, "room-1")
	hub.LeaveRoom(client)

	// Too young to sweep
	removed := hub.SweepEmptyRooms(now.Add(time.Hour))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, hub.RoomCount())

	removed = hub.SweepEmptyRooms(now.Add(25 * time.Hour))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, hub.RoomCount())
}

func TestSweepNeverRemovesOccupiedRooms(t *testing.T) {
	hub := newTestHub()

	client := newTestClient(hub, "alice")
	hub.JoinRoom(client, "room-1")

	// Age is irrelevant while anyone is connected
	removed := hub.SweepEmptyRooms(time.Now().Add(1000 * time.Hour))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, hub.RoomCount())
}

func TestSweepRejoinResetsClock(t *testing.T) {
	hub := newTestHub()
	now := time.Now()

	client := newTestClient(hub, "alice")
	hub.JoinRoom(client, "room-1")
	hub.LeaveRoom(client)
	hub.JoinRoom(client, "room-1")
	hub.LeaveRoom(client)

	// The clock restarts on every re-emptying, so the room survives a
	// sweep that its first empty period alone would not
	removed := hub.SweepEmptyRooms(now.Add(23 * time.Hour))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, hub.RoomCount())
}

func TestSweepStampsNeverJoinedRooms(t *testing.T) {
	hub := newTestHub()
	now := time.Now()

	hub.mu.Lock()
	hub.rooms["stale"] = &Room{
		ID:        "stale",
		clients:   make(map[*Client]bool),
		CreatedAt: now.Add(-48 * time.Hour),
	}
	hub.mu.Unlock()

	// First pass only starts the clock
	removed := hub.SweepEmptyRooms(now)
	assert.Equal(t, 0, removed)

	removed = hub.SweepEmptyRooms(now.Add(25 * time.Hour))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, hub.RoomCount())
}

func TestRegisterReplacesPreviousSocket(t *testing.T) {
	hub := newTestHub()

	first := newTestClient(hub, "alice")
	hub.Register <- first

	second := newTestClient(hub, "alice")
	hub.Register <- second

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1 && hub.IsUserOnline("alice")
	}, time.Second, 10*time.Millisecond)

	// The stale socket's send channel is closed on replacement
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-first.Send:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)

	// A frame still in flight on the replaced socket must fail
	// gracefully instead of crashing the process
	assert.NotPanics(t, func() {
		err := first.SendMessage(NewSignalMessage(EventHeartbeat, "", nil))
		assert.Error(t, err)
	})

	// The surviving socket keeps working
	assert.NoError(t, second.SendMessage(NewSignalMessage(EventHeartbeat, "", nil)))
}

func TestRelaySignalSkipsSender(t *testing.T) {
	hub := newTestHub()

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.JoinRoom(alice, "room-1")
	hub.JoinRoom(bob, "room-1")
	drain(alice)
	drain(bob)

	hub.RelaySignal("room-1", "alice", EventOffer, map[string]interface{}{
		"sdp": "v=0",
	})

	msg := waitForMessage(t, bob, EventOffer)
	assert.Equal(t, "alice", msg.FromUserID)
	assert.Equal(t, "room-1", msg.RoomID)
	assert.Equal(t, "v=0", msg.Payload["sdp"])

	assertNoMessage(t, alice, EventOffer)
}

func TestEmitToUserOfflineIsSilent(t *testing.T) {
	hub := newTestHub()

	// Must not block or panic for a user with no connection
	hub.EmitToUser("ghost", NewSignalMessage(EventIncomingCall, "", nil))

	assert.False(t, hub.IsUserOnline("ghost"))
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func waitForMessage(t *testing.T, c *Client, eventType EventType) *SignalMessage {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case data := <-c.Send:
			msg, err := FromJSON(data)
			require.NoError(t, err)
			if msg.Type == eventType {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s message received", eventType)
			return nil
		}
	}
}

func assertNoMessage(t *testing.T, c *Client, eventType EventType) {
	t.Helper()

	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return
			}
			msg, err := FromJSON(data)
			require.NoError(t, err)
			assert.NotEqual(t, eventType, msg.Type)
		case <-timeout:
			return
		}
	}
}
