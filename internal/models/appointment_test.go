package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestHoldsSlot(t *testing.T) {
	// Rejected appointments never hold the slot, whatever the
	// execution state says
	for _, status := range []ExecutionStatus{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusMissed} {
		assert.False(t, HoldsSlot(ApprovalRejected, status), "rejected should release slot for status %s", status)
	}

	assert.True(t, HoldsSlot(ApprovalPending, StatusScheduled))
	assert.True(t, HoldsSlot(ApprovalApproved, StatusScheduled))
	assert.True(t, HoldsSlot(ApprovalApproved, StatusInProgress))

	assert.False(t, HoldsSlot(ApprovalApproved, StatusCompleted))
	assert.False(t, HoldsSlot(ApprovalApproved, StatusCancelled))
	assert.False(t, HoldsSlot(ApprovalPending, StatusMissed))
}

func TestCommunicationReady(t *testing.T) {
	appt := &Appointment{ApprovalStatus: ApprovalPending}
	assert.False(t, appt.CommunicationReady())

	// Half-applied states never unlock communication
	appt.ApprovalStatus = ApprovalApproved
	assert.False(t, appt.CommunicationReady())

	appt.ApprovalStatus = ApprovalPending
	appt.CommunicationEnabled = true
	assert.False(t, appt.CommunicationReady())

	appt.ApprovalStatus = ApprovalApproved
	assert.True(t, appt.CommunicationReady())

	appt.ApprovalStatus = ApprovalRejected
	assert.False(t, appt.CommunicationReady())
}

func TestOpenCall(t *testing.T) {
	patient := primitive.NewObjectID()
	professional := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	ended := time.Now().Add(-time.Hour)

	appt := &Appointment{
		PatientID:      patient,
		ProfessionalID: professional,
	}
	assert.Equal(t, -1, appt.OpenCall(patient))
	assert.False(t, appt.HasOpenCall())

	appt.CallHistory = []CallSession{
		{
			Type:    CallVoice,
			EndTime: &ended,
			Participants: []CallParticipant{
				{UserID: patient},
				{UserID: professional},
			},
		},
		{
			Type: CallVideo,
			Participants: []CallParticipant{
				{UserID: patient},
				{UserID: professional},
			},
		},
	}

	assert.Equal(t, 1, appt.OpenCall(patient))
	assert.Equal(t, 1, appt.OpenCall(professional))
	assert.Equal(t, -1, appt.OpenCall(stranger))
	assert.True(t, appt.HasOpenCall())

	now := time.Now()
	appt.CallHistory[1].EndTime = &now
	assert.Equal(t, -1, appt.OpenCall(patient))
	assert.False(t, appt.HasOpenCall())
}

func TestIsParty(t *testing.T) {
	patient := primitive.NewObjectID()
	professional := primitive.NewObjectID()

	appt := &Appointment{PatientID: patient, ProfessionalID: professional}

	assert.True(t, appt.IsParty(patient))
	assert.True(t, appt.IsParty(professional))
	assert.False(t, appt.IsParty(primitive.NewObjectID()))

	assert.Equal(t, KindPatient, appt.PartyKind(patient))
	assert.Equal(t, KindProfessional, appt.PartyKind(professional))
}

func TestValidEnums(t *testing.T) {
	assert.True(t, ValidExecutionStatus(StatusScheduled))
	assert.True(t, ValidExecutionStatus(StatusMissed))
	assert.False(t, ValidExecutionStatus("approved"))
	assert.False(t, ValidExecutionStatus(""))

	assert.True(t, ValidSessionType(SessionVideo))
	assert.True(t, ValidSessionType(SessionChat))
	assert.True(t, ValidSessionType(SessionPhone))
	assert.False(t, ValidSessionType("in-person"))

	assert.True(t, ValidCallType(CallVoice))
	assert.True(t, ValidCallType(CallVideo))
	assert.False(t, ValidCallType("screen"))

	assert.True(t, ValidCallQuality("good"))
	assert.True(t, ValidCallQuality("poor"))
	assert.False(t, ValidCallQuality("great"))
	assert.False(t, ValidCallQuality(""))
}
