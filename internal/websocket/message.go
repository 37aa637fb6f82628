package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType represents different types of signaling events
type EventType string

const (
	// Client-initiated room events
	EventJoin  EventType = "join"
	EventLeave EventType = "leave"

	// WebRTC signaling payloads, relayed verbatim to room peers
	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventICECandidate EventType = "ice-candidate"

	// Server-originated room events
	EventRoomJoined = "room_joined"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"

	// Out-of-band notifications delivered to a specific user
	EventIncomingCall EventType = "incoming_call"
	EventCallEnded    EventType = "call_ended"
	EventNotification EventType = "notification"

	// Connection housekeeping
	EventError     EventType = "error"
	EventConnected EventType = "connected"
	EventHeartbeat EventType = "heartbeat"
)

// SignalMessage is the wire format for every event on the socket.
// Payload carries the event body untouched, so SDP blobs and ICE
// candidates pass through the server without inspection.
type SignalMessage struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	RoomID     string                 `json:"room_id,omitempty"`
	FromUserID string                 `json:"from_user_id,omitempty"`
	ToUserID   string                 `json:"to_user_id,omitempty"`
	Content    string                 `json:"content,omitempty"`
	Payload    map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewSignalMessage creates a new signaling message
func NewSignalMessage(eventType EventType, content string, payload map[string]interface{}) *SignalMessage {
	return &SignalMessage{
		ID:        primitive.NewObjectID().Hex(),
		Type:      eventType,
		Content:   content,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (msg *SignalMessage) ToJSON() ([]byte, error) {
	return json.Marshal(msg)
}

// FromJSON creates a message from JSON bytes
func FromJSON(data []byte) (*SignalMessage, error) {
	var msg SignalMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// SetFrom sets the sender of the message
func (msg *SignalMessage) SetFrom(userID string) {
	msg.FromUserID = userID
}

// SetRoomID sets the room the message belongs to
func (msg *SignalMessage) SetRoomID(roomID string) {
	msg.RoomID = roomID
}

// AddPayload adds a payload field to the message
func (msg *SignalMessage) AddPayload(key string, value interface{}) {
	if msg.Payload == nil {
		msg.Payload = make(map[string]interface{})
	}
	msg.Payload[key] = value
}

// IsRelayEvent reports whether the event is a WebRTC signal the server
// forwards to room peers without interpreting.
func (msg *SignalMessage) IsRelayEvent() bool {
	switch msg.Type {
	case EventOffer, EventAnswer, EventICECandidate:
		return true
	}
	return false
}

// Validate checks the message structure
func (msg *SignalMessage) Validate() error {
	if msg.Type == "" {
		return fmt.Errorf("event type is required")
	}

	if msg.Type == EventJoin && msg.RoomID == "" {
		return fmt.Errorf("room_id is required to join")
	}

	if msg.IsRelayEvent() && msg.Payload == nil {
		return fmt.Errorf("payload is required for %s", msg.Type)
	}

	return nil
}
