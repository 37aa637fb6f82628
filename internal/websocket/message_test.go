package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalMessageValidate(t *testing.T) {
	msg := NewSignalMessage(EventHeartbeat, "", nil)
	assert.NoError(t, msg.Validate())

	msg.Type = ""
	assert.Error(t, msg.Validate())

	join := NewSignalMessage(EventJoin, "", nil)
	assert.Error(t, join.Validate(), "join without a room must fail")
	join.SetRoomID("room-1")
	assert.NoError(t, join.Validate())

	offer := NewSignalMessage(EventOffer, "", nil)
	assert.Error(t, offer.Validate(), "relay events carry their signal in the payload")
	offer.AddPayload("sdp", "v=0")
	assert.NoError(t, offer.Validate())
}

func TestIsRelayEvent(t *testing.T) {
	relayed := []EventType{EventOffer, EventAnswer, EventICECandidate}
	for _, eventType := range relayed {
		msg := NewSignalMessage(eventType, "", map[string]interface{}{"x": 1})
		assert.True(t, msg.IsRelayEvent(), "%s should be relayed", eventType)
	}

	notRelayed := []EventType{EventJoin, EventLeave, EventHeartbeat, EventIncomingCall, EventError}
	for _, eventType := range notRelayed {
		msg := NewSignalMessage(eventType, "", nil)
		assert.False(t, msg.IsRelayEvent(), "%s should not be relayed", eventType)
	}
}

func TestSignalMessageRoundTrip(t *testing.T) {
	msg := NewSignalMessage(EventICECandidate, "", map[string]interface{}{
		"candidate": "candidate:1 1 UDP 2122194687 192.0.2.1 54400 typ host",
	})
	msg.SetRoomID("room-1")
	msg.SetFrom("alice")

	data, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, EventICECandidate, decoded.Type)
	assert.Equal(t, "room-1", decoded.RoomID)
	assert.Equal(t, "alice", decoded.FromUserID)
	assert.NotEmpty(t, decoded.ID)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte("not json"))
	assert.Error(t, err)
}
