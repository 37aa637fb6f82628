package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApprovalStatus is the approval axis of an appointment. It is terminal
// once decided; communication features gate strictly on this axis.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ExecutionStatus is the session-lifecycle axis, independent of approval.
type ExecutionStatus string

const (
	StatusScheduled  ExecutionStatus = "scheduled"
	StatusInProgress ExecutionStatus = "in-progress"
	StatusCompleted  ExecutionStatus = "completed"
	StatusCancelled  ExecutionStatus = "cancelled"
	StatusMissed     ExecutionStatus = "missed"
)

// SessionType is the medium the appointment was booked for.
type SessionType string

const (
	SessionVideo SessionType = "video"
	SessionChat  SessionType = "chat"
	SessionPhone SessionType = "phone"
)

// CallType distinguishes the two realtime call media.
type CallType string

const (
	CallVoice CallType = "voice"
	CallVideo CallType = "video"
)

// Appointment ties one patient to one professional for a scheduled session.
// PatientID and ProfessionalID are immutable after creation.
type Appointment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID      primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	ProfessionalID primitive.ObjectID `bson:"professional_id" json:"professional_id"`

	Date            time.Time   `bson:"date" json:"date"`
	Time            string      `bson:"time" json:"time"`
	DurationMinutes int         `bson:"duration_minutes" json:"duration_minutes"`
	SessionType     SessionType `bson:"session_type" json:"session_type"`
	Reason          string      `bson:"reason" json:"reason"`
	Fee             float64     `bson:"fee" json:"fee"`

	ApprovalStatus  ApprovalStatus `bson:"approval_status" json:"approval_status"`
	ApprovedAt      *time.Time     `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	RejectionReason string         `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	Status ExecutionStatus `bson:"status" json:"status"`

	// SlotHeld backs the unique slot index: true while the appointment
	// blocks its {professional, date, time} slot.
	SlotHeld bool `bson:"slot_held" json:"-"`

	// CommunicationEnabled is a one-way latch flipped at approval,
	// never unset.
	CommunicationEnabled bool                `bson:"communication_enabled" json:"communication_enabled"`
	ChatThreadID         *primitive.ObjectID `bson:"chat_thread_id,omitempty" json:"chat_thread_id,omitempty"`

	Notes AppointmentNotes `bson:"notes" json:"notes"`

	MeetingID   string `bson:"meeting_id,omitempty" json:"meeting_id,omitempty"`
	MeetingLink string `bson:"meeting_link,omitempty" json:"meeting_link,omitempty"`

	CallHistory []CallSession `bson:"call_history" json:"call_history"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AppointmentNotes keeps the two roles' notes in separate fields so one
// role never overwrites the other's.
type AppointmentNotes struct {
	Patient      string `bson:"patient,omitempty" json:"patient,omitempty"`
	Professional string `bson:"professional,omitempty" json:"professional,omitempty"`
}

// CallSession is one entry of an appointment's call history. EndTime is
// nil while the call is open; at most one entry per appointment is open.
type CallSession struct {
	Type            CallType          `bson:"type" json:"type"`
	StartTime       time.Time         `bson:"start_time" json:"start_time"`
	EndTime         *time.Time        `bson:"end_time,omitempty" json:"end_time,omitempty"`
	DurationMinutes int               `bson:"duration_minutes" json:"duration_minutes"`
	Quality         string            `bson:"quality,omitempty" json:"quality,omitempty"`
	Participants    []CallParticipant `bson:"participants" json:"participants"`
}

type CallParticipant struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	UserKind AccountKind        `bson:"user_kind" json:"user_kind"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
	LeftAt   *time.Time         `bson:"left_at,omitempty" json:"left_at,omitempty"`
}

// ValidExecutionStatus reports whether s is one of the five execution
// states.
func ValidExecutionStatus(s ExecutionStatus) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusMissed:
		return true
	}
	return false
}

// ValidSessionType reports whether t is a bookable session medium.
func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionVideo, SessionChat, SessionPhone:
		return true
	}
	return false
}

// ValidCallType reports whether t is a startable call medium.
func ValidCallType(t CallType) bool {
	return t == CallVoice || t == CallVideo
}

// ValidCallQuality reports whether q is an accepted post-call rating.
func ValidCallQuality(q string) bool {
	switch q {
	case "excellent", "good", "fair", "poor":
		return true
	}
	return false
}

// HoldsSlot reports whether an appointment in the given states still
// blocks its {professional, date, time} slot. Rejected and finished
// appointments release the slot.
func HoldsSlot(approval ApprovalStatus, status ExecutionStatus) bool {
	if approval == ApprovalRejected {
		return false
	}
	return status == StatusScheduled || status == StatusInProgress
}

// OpenCall returns the most recently started call-history entry with no
// end time in which actor participates, or -1.
func (a *Appointment) OpenCall(actor primitive.ObjectID) int {
	for i := len(a.CallHistory) - 1; i >= 0; i-- {
		call := a.CallHistory[i]
		if call.EndTime != nil {
			continue
		}
		for _, p := range call.Participants {
			if p.UserID == actor {
				return i
			}
		}
	}
	return -1
}

// HasOpenCall reports whether any call-history entry is still open.
func (a *Appointment) HasOpenCall() bool {
	for _, call := range a.CallHistory {
		if call.EndTime == nil {
			return true
		}
	}
	return false
}

// IsParty reports whether id is the patient or the professional on the
// appointment.
func (a *Appointment) IsParty(id primitive.ObjectID) bool {
	return a.PatientID == id || a.ProfessionalID == id
}

// PartyKind returns the account kind id plays on this appointment.
func (a *Appointment) PartyKind(id primitive.ObjectID) AccountKind {
	if a.PatientID == id {
		return KindPatient
	}
	return KindProfessional
}

// CommunicationReady reports whether chat and calls are unlocked. The
// latch and the approval axis move together; both are checked so a
// half-applied state can never unlock communication.
func (a *Appointment) CommunicationReady() bool {
	return a.ApprovalStatus == ApprovalApproved && a.CommunicationEnabled
}
