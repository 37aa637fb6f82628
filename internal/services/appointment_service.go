package services

import (
	"context"
	"fmt"
	"time"

	"nutrivision/internal/apperr"
	"nutrivision/internal/models"
	"nutrivision/internal/utils"
	"nutrivision/internal/websocket"
	"nutrivision/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AppointmentService owns the appointment lifecycle: booking, the
// professional's approve/reject decision, execution-status transitions
// and the per-appointment call history.
type AppointmentService struct {
	db            *mongo.Database
	chats         *ChatService
	notifications *NotificationService
	hub           *websocket.Hub
	frontendURL   string
}

func NewAppointmentService(db *mongo.Database, chats *ChatService, notifications *NotificationService, hub *websocket.Hub, frontendURL string) *AppointmentService {
	return &AppointmentService{
		db:            db,
		chats:         chats,
		notifications: notifications,
		hub:           hub,
		frontendURL:   frontendURL,
	}
}

// BookingRequest is the patient's input when requesting an appointment.
type BookingRequest struct {
	ProfessionalID  string             `json:"professional_id"`
	Date            time.Time          `json:"date"`
	Time            string             `json:"time"`
	DurationMinutes int                `json:"duration_minutes"`
	SessionType     models.SessionType `json:"session_type"`
	Reason          string             `json:"reason"`
}

// Book creates an appointment in the pending/scheduled state. The slot
// is held from the moment of booking; a concurrent booking of the same
// {professional, date, time} loses on the unique slot index.
func (s *AppointmentService) Book(patientID primitive.ObjectID, req BookingRequest) (*models.Appointment, error) {
	professionalID, err := primitive.ObjectIDFromHex(req.ProfessionalID)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "INVALID_ID", "Invalid professional id")
	}
	if !utils.ValidateReason(req.Reason) {
		return nil, apperr.New(apperr.Validation, "INVALID_REASON", "Reason must be at least 10 characters")
	}
	if !utils.ValidateTimeOfDay(req.Time) {
		return nil, apperr.New(apperr.Validation, "INVALID_TIME", "Time must be in HH:MM format")
	}
	if !models.ValidSessionType(req.SessionType) {
		return nil, apperr.New(apperr.Validation, "INVALID_SESSION_TYPE", "Session type must be video, chat or phone")
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var professional models.Professional
	err = s.db.Collection("professionals").FindOne(ctx, bson.M{"_id": professionalID}).Decode(&professional)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrProfessionalUnavailable
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load professional")
	}
	if !professional.CanPractice() {
		return nil, apperr.ErrProfessionalUnavailable
	}

	day := req.Date.Truncate(24 * time.Hour)

	now := time.Now()
	appointment := models.Appointment{
		ID:                   primitive.NewObjectID(),
		PatientID:            patientID,
		ProfessionalID:       professionalID,
		Date:                 day,
		Time:                 req.Time,
		DurationMinutes:      req.DurationMinutes,
		SessionType:          req.SessionType,
		Reason:               req.Reason,
		Fee:                  professional.ConsultationRate,
		ApprovalStatus:       models.ApprovalPending,
		Status:               models.StatusScheduled,
		SlotHeld:             true,
		CommunicationEnabled: false,
		CallHistory:          []models.CallSession{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	_, err = s.db.Collection("appointments").InsertOne(ctx, appointment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.ErrSlotConflict
		}
		return nil, apperr.Wrap(err, "failed to create appointment")
	}

	logger.LogAppointmentEvent("booked", appointment.ID.Hex(), patientID.Hex(), map[string]interface{}{
		"professional_id": professionalID.Hex(),
		"date":            day.Format("2006-01-02"),
		"time":            req.Time,
	})

	s.notify(professionalID, "New appointment request",
		fmt.Sprintf("A patient requested an appointment on %s at %s", day.Format("2006-01-02"), req.Time),
		appointment.ID)

	return &appointment, nil
}

// Approve moves a pending appointment to approved, flips the
// communication latch and links the chat thread, all in one document
// update. The thread is created first so an approved appointment can
// never be observed without its thread; if the decision loses the race
// the freshly created thread is removed again.
func (s *AppointmentService) Approve(professionalID, appointmentID primitive.ObjectID) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var current models.Appointment
	err := s.db.Collection("appointments").FindOne(ctx, bson.M{"_id": appointmentID}).Decode(&current)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load appointment")
	}
	if err := decisionPrecheck(&current, professionalID); err != nil {
		return nil, err
	}

	thread, created, err := s.chats.EnsureThread(ctx, &current)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var approved models.Appointment
	err = s.db.Collection("appointments").FindOneAndUpdate(ctx,
		bson.M{
			"_id":             appointmentID,
			"professional_id": professionalID,
			"approval_status": models.ApprovalPending,
		},
		bson.M{"$set": bson.M{
			"approval_status":       models.ApprovalApproved,
			"communication_enabled": true,
			"approved_at":           now,
			"chat_thread_id":        thread.ID,
			"updated_at":            now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&approved)
	if err == mongo.ErrNoDocuments {
		// Lost to a concurrent decision. The thread is removed only when
		// the winner did not link it; a concurrent approval may have
		// adopted the same thread.
		if created {
			var latest models.Appointment
			findErr := s.db.Collection("appointments").FindOne(ctx,
				bson.M{"_id": appointmentID}).Decode(&latest)
			switch {
			case findErr == mongo.ErrNoDocuments:
				s.chats.RemoveThread(ctx, thread.ID)
			case findErr == nil && threadOrphaned(&latest, thread.ID):
				s.chats.RemoveThread(ctx, thread.ID)
			}
		}
		return nil, apperr.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to approve appointment")
	}

	logger.LogAppointmentEvent("approved", appointmentID.Hex(), professionalID.Hex(), map[string]interface{}{
		"chat_thread_id": thread.ID.Hex(),
	})

	s.notify(approved.PatientID, "Appointment approved",
		"Your appointment request was approved. Chat and calls are now available.",
		appointmentID)

	return &approved, nil
}

// Reject declines a pending appointment and releases its slot. The
// decision is terminal; a rejected appointment is treated as not found
// by every later decision attempt.
func (s *AppointmentService) Reject(professionalID, appointmentID primitive.ObjectID, reason string) (*models.Appointment, error) {
	if !utils.ValidateRejectionReason(reason) {
		return nil, apperr.New(apperr.Validation, "INVALID_REASON", "Rejection reason must be at least 5 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	var rejected models.Appointment
	err := s.db.Collection("appointments").FindOneAndUpdate(ctx,
		bson.M{
			"_id":             appointmentID,
			"professional_id": professionalID,
			"approval_status": models.ApprovalPending,
		},
		bson.M{"$set": bson.M{
			"approval_status":  models.ApprovalRejected,
			"rejection_reason": reason,
			"slot_held":        false,
			"updated_at":       now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rejected)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to reject appointment")
	}

	logger.LogAppointmentEvent("rejected", appointmentID.Hex(), professionalID.Hex(), nil)

	s.notify(rejected.PatientID, "Appointment declined",
		fmt.Sprintf("Your appointment request was declined: %s", reason),
		appointmentID)

	return &rejected, nil
}

// StatusUpdate is a transition on the execution axis with optional
// role-scoped notes.
type StatusUpdate struct {
	Status models.ExecutionStatus `json:"status"`
	Notes  string                 `json:"notes"`
}

// UpdateStatus moves the execution axis. Either party may apply any
// execution state. The slot hold is recomputed from the resulting
// state pair.
func (s *AppointmentService) UpdateStatus(actor models.Subject, appointmentID primitive.ObjectID, upd StatusUpdate) (*models.Appointment, error) {
	if !models.ValidExecutionStatus(upd.Status) {
		return nil, apperr.New(apperr.Validation, "INVALID_STATUS", "Unknown appointment status")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	appointment, err := s.loadForParty(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	set := statusUpdateSet(actor, appointment.ApprovalStatus, upd, time.Now())

	var updated models.Appointment
	err = s.db.Collection("appointments").FindOneAndUpdate(ctx,
		bson.M{"_id": appointmentID, "status": appointment.Status},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to update appointment status")
	}

	logger.LogAppointmentEvent("status_changed", appointmentID.Hex(), actor.ID.Hex(), map[string]interface{}{
		"from": appointment.Status,
		"to":   upd.Status,
	})

	other := updated.PatientID
	if actor.ID == updated.PatientID {
		other = updated.ProfessionalID
	}
	s.notify(other, "Appointment updated",
		fmt.Sprintf("Appointment status changed to %s", upd.Status),
		appointmentID)

	return &updated, nil
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	ApprovalStatus models.ApprovalStatus
	Status         models.ExecutionStatus
	Upcoming       bool
	Page           int
	Limit          int
}

// ListForSubject returns the appointments the subject is a party to,
// newest first.
func (s *AppointmentService) ListForSubject(actor models.Subject, filter AppointmentFilter) ([]models.Appointment, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := bson.M{}
	switch actor.Kind {
	case models.KindPatient:
		query["patient_id"] = actor.ID
	case models.KindProfessional:
		query["professional_id"] = actor.ID
	default:
		return nil, 0, apperr.ErrAccessDenied
	}

	if filter.ApprovalStatus != "" {
		query["approval_status"] = filter.ApprovalStatus
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Upcoming {
		query["date"] = bson.M{"$gte": time.Now().Truncate(24 * time.Hour)}
		query["status"] = bson.M{"$in": []models.ExecutionStatus{models.StatusScheduled, models.StatusInProgress}}
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	collection := s.db.Collection("appointments")

	total, err := collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to count appointments")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to list appointments")
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, 0, apperr.Wrap(err, "failed to decode appointments")
	}

	return appointments, total, nil
}

// Get loads one appointment, party-only.
func (s *AppointmentService) Get(actor models.Subject, appointmentID primitive.ObjectID) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.loadForParty(ctx, actor, appointmentID)
}

// StartCall opens a call-history entry and pushes an incoming_call
// event to the other party. The guarded push keeps at most one open
// entry per appointment under concurrent starts.
func (s *AppointmentService) StartCall(actor models.Subject, appointmentID primitive.ObjectID, callType models.CallType) (*models.Appointment, error) {
	if !models.ValidCallType(callType) {
		return nil, apperr.New(apperr.Validation, "INVALID_CALL_TYPE", "Call type must be voice or video")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	appointment, err := s.loadForParty(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.CommunicationReady() {
		return nil, apperr.ErrCommunicationNotEnabled
	}

	now := time.Now()
	entry := newCallSession(actor, callType, now)

	set := bson.M{"updated_at": now}
	if callType == models.CallVideo && appointment.MeetingID == "" {
		meetingID := uuid.NewString()
		set["meeting_id"] = meetingID
		set["meeting_link"] = fmt.Sprintf("%s/meeting/%s", s.frontendURL, meetingID)
	}

	result, err := s.db.Collection("appointments").UpdateOne(ctx,
		bson.M{
			"_id": appointmentID,
			"call_history": bson.M{"$not": bson.M{
				"$elemMatch": bson.M{"end_time": nil},
			}},
		},
		bson.M{
			"$push": bson.M{"call_history": entry},
			"$set":  set,
		},
	)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to start call")
	}
	if result.MatchedCount == 0 {
		return nil, apperr.ErrCallInProgress
	}

	logger.LogCallEvent("call_started", appointmentID.Hex(), actor.ID.Hex(), map[string]interface{}{
		"call_type": callType,
	})

	updated, err := s.loadForParty(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	other := updated.PatientID
	if actor.ID == updated.PatientID {
		other = updated.ProfessionalID
	}

	if s.hub != nil {
		incoming := websocket.NewSignalMessage(websocket.EventIncomingCall, "", map[string]interface{}{
			"appointment_id": appointmentID.Hex(),
			"room_id":        appointmentID.Hex(),
			"call_type":      callType,
			"caller_id":      actor.ID.Hex(),
			"caller_name":    actor.Name,
			"meeting_link":   updated.MeetingLink,
		})
		s.hub.EmitToUser(other.Hex(), incoming)
	}

	return updated, nil
}

// CallClose carries the caller-reported wrap-up of a finished call.
type CallClose struct {
	Quality  string `json:"quality"`
	Duration *int   `json:"duration"`
}

// EndCall closes the open call-history entry in a single filtered
// update. The caller may report the duration; otherwise it is computed
// from the start time. An unrecognized quality falls back to good.
func (s *AppointmentService) EndCall(actor models.Subject, appointmentID primitive.ObjectID, wrap CallClose) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	appointment, err := s.loadForParty(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	idx := appointment.OpenCall(actor.ID)
	if idx < 0 {
		return nil, apperr.ErrNoActiveCall
	}

	now := time.Now()
	open := appointment.CallHistory[idx]
	duration := callDuration(open.StartTime, now, wrap.Duration)

	set := bson.M{
		"call_history.$[call].end_time":         now,
		"call_history.$[call].duration_minutes": duration,
		"call_history.$[call].quality":          normalizeCallQuality(wrap.Quality),
		"call_history.$[call].participants.$[p].left_at": now,
		"updated_at": now,
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"call.end_time": nil},
			bson.M{"p.user_id": actor.ID},
		},
	}

	result, err := s.db.Collection("appointments").UpdateOne(ctx,
		bson.M{
			"_id":          appointmentID,
			"call_history": bson.M{"$elemMatch": bson.M{"end_time": nil}},
		},
		bson.M{"$set": set},
		options.Update().SetArrayFilters(arrayFilters),
	)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to end call")
	}
	if result.MatchedCount == 0 {
		// The open entry closed between the read and the write
		return nil, apperr.ErrNoActiveCall
	}

	logger.LogCallEvent("call_ended", appointmentID.Hex(), actor.ID.Hex(), map[string]interface{}{
		"duration_minutes": duration,
	})

	updated, err := s.loadForParty(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	other := updated.PatientID
	if actor.ID == updated.PatientID {
		other = updated.ProfessionalID
	}

	if s.hub != nil {
		ended := websocket.NewSignalMessage(websocket.EventCallEnded, "", map[string]interface{}{
			"appointment_id":   appointmentID.Hex(),
			"ended_by":         actor.ID.Hex(),
			"duration_minutes": duration,
		})
		s.hub.EmitToUser(other.Hex(), ended)
	}

	return updated, nil
}

// CallHistory returns the appointment's call log, party-only.
func (s *AppointmentService) CallHistory(actor models.Subject, appointmentID primitive.ObjectID) ([]models.CallSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	appointment, err := s.loadForParty(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	return appointment.CallHistory, nil
}

// loadForParty loads an appointment and enforces party-only access.
func (s *AppointmentService) loadForParty(ctx context.Context, actor models.Subject, appointmentID primitive.ObjectID) (*models.Appointment, error) {
	var appointment models.Appointment
	err := s.db.Collection("appointments").FindOne(ctx, bson.M{"_id": appointmentID}).Decode(&appointment)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load appointment")
	}

	if actor.Kind != models.KindOperator && !appointment.IsParty(actor.ID) {
		return nil, apperr.ErrAccessDenied
	}

	return &appointment, nil
}

// notify records a durable notification and pushes it to the target if
// connected. Failures here never fail the triggering operation.
func (s *AppointmentService) notify(target primitive.ObjectID, title, body string, appointmentID primitive.ObjectID) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Send(target, title, body, &appointmentID); err != nil {
		logger.WithError(err).Warn("Failed to deliver notification")
	}
}

// statusUpdateSet builds the field set for an execution-status change.
// Notes land on the side of the party writing them.
func statusUpdateSet(actor models.Subject, approval models.ApprovalStatus, upd StatusUpdate, now time.Time) bson.M {
	set := bson.M{
		"status":     upd.Status,
		"slot_held":  models.HoldsSlot(approval, upd.Status),
		"updated_at": now,
	}
	if upd.Notes != "" {
		if actor.Kind == models.KindPatient {
			set["notes.patient"] = upd.Notes
		} else {
			set["notes.professional"] = upd.Notes
		}
	}
	return set
}

// decisionPrecheck guards an approval decision. An appointment owned by
// another professional reads as not found, exactly like the decision
// filter itself, so the response never confirms the id exists.
func decisionPrecheck(current *models.Appointment, professionalID primitive.ObjectID) error {
	if current.ProfessionalID != professionalID {
		return apperr.ErrAppointmentNotFound
	}
	if current.ApprovalStatus != models.ApprovalPending {
		return apperr.ErrAppointmentNotFound
	}
	return nil
}

// threadOrphaned reports whether the appointment's decision left the
// given thread unlinked.
func threadOrphaned(appointment *models.Appointment, threadID primitive.ObjectID) bool {
	if appointment == nil || appointment.ChatThreadID == nil {
		return true
	}
	return *appointment.ChatThreadID != threadID
}

// newCallSession opens a call entry with the caller as its only
// participant; the callee is added when they pick up.
func newCallSession(actor models.Subject, callType models.CallType, now time.Time) models.CallSession {
	return models.CallSession{
		Type:      callType,
		StartTime: now,
		Participants: []models.CallParticipant{
			{UserID: actor.ID, UserKind: actor.Kind, JoinedAt: now},
		},
	}
}

// callDuration resolves the minutes recorded for a finished call. A
// caller-reported value wins when positive; otherwise the wall-clock
// span is used, floored at one minute.
func callDuration(start, end time.Time, reported *int) int {
	if reported != nil && *reported > 0 {
		return *reported
	}
	minutes := int(end.Sub(start).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// normalizeCallQuality maps anything outside the accepted ratings to
// good.
func normalizeCallQuality(q string) string {
	if models.ValidCallQuality(q) {
		return q
	}
	return "good"
}
