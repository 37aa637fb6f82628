package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType is the content type of a chat message.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
	MessageVoice MessageType = "voice"
)

// ThreadStatus tracks the lifecycle of a chat thread.
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadArchived ThreadStatus = "archived"
)

// ChatThread is the per-appointment message thread. Exactly two
// participants (one patient, one professional), tied 1:1 to an
// appointment, with an append-only embedded message log.
type ChatThread struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppointmentID primitive.ObjectID `bson:"appointment_id" json:"appointment_id"`
	Participants  []ThreadMember     `bson:"participants" json:"participants"`
	Messages      []ChatMessage      `bson:"messages" json:"messages"`
	Status        ThreadStatus       `bson:"status" json:"status"`
	LastMessage   *MessageSummary    `bson:"last_message,omitempty" json:"last_message,omitempty"`
	UnreadCount   map[string]int     `bson:"unread_count,omitempty" json:"unread_count,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ThreadMember is one participant of a thread, tagged by account kind.
type ThreadMember struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	UserKind AccountKind        `bson:"user_kind" json:"user_kind"`
	Name     string             `bson:"name,omitempty" json:"name,omitempty"`
	LastRead time.Time          `bson:"last_read" json:"last_read"`
}

// ChatMessage is immutable once created; only the read flag mutates, and
// only forward (unread to read).
type ChatMessage struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	SenderKind AccountKind        `bson:"sender_kind" json:"sender_kind"`
	SenderName string             `bson:"sender_name,omitempty" json:"sender_name,omitempty"`
	Content    string             `bson:"content" json:"content"`
	Type       MessageType        `bson:"type" json:"type"`
	IsRead     bool               `bson:"is_read" json:"is_read"`
	ReadAt     *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// MessageSummary is the denormalized last-message view used for listings.
type MessageSummary struct {
	Content    string             `bson:"content" json:"content"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	SenderKind AccountKind        `bson:"sender_kind" json:"sender_kind"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// ValidMessageType reports whether t is an accepted message content type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageVoice:
		return true
	}
	return false
}

// Member returns the participant entry for id, or nil.
func (t *ChatThread) Member(id primitive.ObjectID) *ThreadMember {
	for i := range t.Participants {
		if t.Participants[i].UserID == id {
			return &t.Participants[i]
		}
	}
	return nil
}

// OtherMember returns the participant that is not id, or nil.
func (t *ChatThread) OtherMember(id primitive.ObjectID) *ThreadMember {
	for i := range t.Participants {
		if t.Participants[i].UserID != id {
			return &t.Participants[i]
		}
	}
	return nil
}

// UnreadFor counts messages not authored by id that are still unread.
func (t *ChatThread) UnreadFor(id primitive.ObjectID) int {
	count := 0
	for _, msg := range t.Messages {
		if msg.SenderID != id && !msg.IsRead {
			count++
		}
	}
	return count
}
