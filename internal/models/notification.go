package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a durable notification record. System events carry an
// appointment reference and no sender; operator announcements carry the
// sending operator. Broadcasts have no target.
type Notification struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title         string              `bson:"title" json:"title"`
	Body          string              `bson:"body" json:"body"`
	TargetID      *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"`
	TargetKind    AccountKind         `bson:"target_kind,omitempty" json:"target_kind,omitempty"`
	AppointmentID *primitive.ObjectID `bson:"appointment_id,omitempty" json:"appointment_id,omitempty"`
	SentBy        *primitive.ObjectID `bson:"sent_by,omitempty" json:"sent_by,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
