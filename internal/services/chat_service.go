package services

import (
	"context"
	"strings"
	"time"

	"nutrivision/internal/apperr"
	"nutrivision/internal/models"
	"nutrivision/internal/websocket"
	"nutrivision/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxMessageLength bounds a single chat message.
const maxMessageLength = 2000

// ChatService owns the per-appointment chat threads. A thread exists
// only for approved appointments and is provisioned exactly once, at
// approval time.
type ChatService struct {
	db  *mongo.Database
	hub *websocket.Hub
}

func NewChatService(db *mongo.Database, hub *websocket.Hub) *ChatService {
	return &ChatService{db: db, hub: hub}
}

// EnsureThread creates the appointment's chat thread, or returns the
// existing one. The unique index on appointment_id turns a concurrent
// double-create into a duplicate-key error, which resolves to a fetch.
// The returned flag reports whether this call created the thread.
func (s *ChatService) EnsureThread(ctx context.Context, appointment *models.Appointment) (*models.ChatThread, bool, error) {
	patientName, professionalName := s.partyNames(ctx, appointment)

	now := time.Now()
	thread := models.ChatThread{
		ID:            primitive.NewObjectID(),
		AppointmentID: appointment.ID,
		Participants: []models.ThreadMember{
			{UserID: appointment.PatientID, UserKind: models.KindPatient, Name: patientName, LastRead: now},
			{UserID: appointment.ProfessionalID, UserKind: models.KindProfessional, Name: professionalName, LastRead: now},
		},
		Messages:    []models.ChatMessage{},
		Status:      models.ThreadActive,
		UnreadCount: map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.Collection("chat_threads").InsertOne(ctx, thread)
	if err == nil {
		logger.LogChatEvent("thread_created", thread.ID.Hex(), "", map[string]interface{}{
			"appointment_id": appointment.ID.Hex(),
		})
		return &thread, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, apperr.Wrap(err, "failed to create chat thread")
	}

	var existing models.ChatThread
	err = s.db.Collection("chat_threads").FindOne(ctx, bson.M{
		"appointment_id": appointment.ID,
	}).Decode(&existing)
	if err != nil {
		return nil, false, apperr.Wrap(err, "failed to load existing chat thread")
	}

	return &existing, false, nil
}

// RemoveThread deletes a thread. Used only to undo a provisioning whose
// approval lost the race; never exposed over HTTP.
func (s *ChatService) RemoveThread(ctx context.Context, threadID primitive.ObjectID) {
	_, err := s.db.Collection("chat_threads").DeleteOne(ctx, bson.M{"_id": threadID})
	if err != nil {
		logger.WithError(err).Warn("Failed to remove orphaned chat thread")
	}
}

// MessageInput is the sender's payload for one chat message.
type MessageInput struct {
	Content string             `json:"content"`
	Type    models.MessageType `json:"type"`
}

// PostMessage appends a message to the appointment's thread. Requires
// the appointment to be approved with communication enabled; the gate
// failing reads as not found, indistinguishable from a missing
// appointment.
func (s *ChatService) PostMessage(actor models.Subject, appointmentID primitive.ObjectID, input MessageInput) (*models.ChatMessage, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}
	if len(content) > maxMessageLength {
		return nil, apperr.New(apperr.Validation, "CONTENT_TOO_LONG", "Message content exceeds the maximum length")
	}
	if input.Type == "" {
		input.Type = models.MessageText
	}
	if !models.ValidMessageType(input.Type) {
		return nil, apperr.New(apperr.Validation, "INVALID_MESSAGE_TYPE", "Unknown message type")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	thread, appointment, err := s.loadThread(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if thread.Status == models.ThreadArchived {
		return nil, apperr.New(apperr.State, "THREAD_ARCHIVED", "Chat thread is archived")
	}

	now := time.Now()
	message := models.ChatMessage{
		ID:         primitive.NewObjectID(),
		SenderID:   actor.ID,
		SenderKind: actor.Kind,
		SenderName: actor.Name,
		Content:    content,
		Type:       input.Type,
		IsRead:     false,
		Timestamp:  now,
	}

	other := appointment.PatientID
	if actor.ID == appointment.PatientID {
		other = appointment.ProfessionalID
	}

	summary := models.MessageSummary{
		Content:    content,
		SenderID:   actor.ID,
		SenderKind: actor.Kind,
		Timestamp:  now,
	}

	_, err = s.db.Collection("chat_threads").UpdateOne(ctx,
		bson.M{"_id": thread.ID},
		bson.M{
			"$push": bson.M{"messages": message},
			"$set":  bson.M{"last_message": summary, "updated_at": now},
			"$inc":  bson.M{"unread_count." + other.Hex(): 1},
		},
	)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to store message")
	}

	logger.LogChatEvent("message_sent", thread.ID.Hex(), actor.ID.Hex(), map[string]interface{}{
		"message_type":   input.Type,
		"content_length": len(content),
	})

	if s.hub != nil {
		event := websocket.NewSignalMessage(websocket.EventNotification, "new_message", map[string]interface{}{
			"appointment_id": appointmentID.Hex(),
			"thread_id":      thread.ID.Hex(),
			"sender_id":      actor.ID.Hex(),
			"sender_name":    actor.Name,
			"preview":        content,
		})
		s.hub.EmitToUser(other.Hex(), event)
	}

	return &message, nil
}

// MessagePage is one chronological page of a thread plus its position
// in the full log.
type MessagePage struct {
	Messages   []models.ChatMessage `json:"messages"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"total_pages"`
}

// ListMessages returns one page of the thread. Pages are taken newest
// first, so page 1 is the most recent window, but messages inside the
// page come back in chronological order for display.
func (s *ChatService) ListMessages(actor models.Subject, appointmentID primitive.ObjectID, page, limit int) (*MessagePage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	thread, _, err := s.loadThread(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}

	return paginateMessages(thread.Messages, page, limit), nil
}

// paginateMessages pages backwards from the tail of a chronological
// message log, returning each page in chronological order.
func paginateMessages(messages []models.ChatMessage, page, limit int) *MessagePage {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	total := len(messages)
	totalPages := (total + limit - 1) / limit

	// Page 1 ends at the newest message
	end := total - (page-1)*limit
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	pageMessages := make([]models.ChatMessage, end-start)
	copy(pageMessages, messages[start:end])

	return &MessagePage{
		Messages:   pageMessages,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// MarkRead marks every message not authored by the actor as read and
// clears the actor's unread counter. Read flags only move forward. The
// count of messages flipped is returned.
func (s *ChatService) MarkRead(actor models.Subject, appointmentID primitive.ObjectID) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	thread, _, err := s.loadThread(ctx, actor, appointmentID)
	if err != nil {
		return 0, err
	}

	marked := thread.UnreadFor(actor.ID)

	now := time.Now()
	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"msg.sender_id": bson.M{"$ne": actor.ID}, "msg.is_read": false},
			bson.M{"m.user_id": actor.ID},
		},
	}

	_, err = s.db.Collection("chat_threads").UpdateOne(ctx,
		bson.M{"_id": thread.ID},
		bson.M{"$set": bson.M{
			"messages.$[msg].is_read":         true,
			"messages.$[msg].read_at":         now,
			"participants.$[m].last_read":     now,
			"unread_count." + actor.ID.Hex(): 0,
			"updated_at":                      now,
		}},
		options.Update().SetArrayFilters(arrayFilters),
	)
	if err != nil {
		return 0, apperr.Wrap(err, "failed to mark messages read")
	}

	logger.LogChatEvent("messages_read", thread.ID.Hex(), actor.ID.Hex(), map[string]interface{}{
		"marked": marked,
	})

	return marked, nil
}

// ThreadSummary is the listing view of a thread without its messages.
type ThreadSummary struct {
	ID            primitive.ObjectID     `bson:"_id" json:"id"`
	AppointmentID primitive.ObjectID     `bson:"appointment_id" json:"appointment_id"`
	Participants  []models.ThreadMember  `bson:"participants" json:"participants"`
	Status        models.ThreadStatus    `bson:"status" json:"status"`
	LastMessage   *models.MessageSummary `bson:"last_message,omitempty" json:"last_message,omitempty"`
	UnreadCount   map[string]int         `bson:"unread_count,omitempty" json:"unread_count,omitempty"`
	UpdatedAt     time.Time              `bson:"updated_at" json:"updated_at"`
}

// ListThreads returns the actor's threads, most recently active first.
// Message bodies stay out of the projection.
func (s *ChatService) ListThreads(actor models.Subject) ([]ThreadSummary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"messages": 0})

	cursor, err := s.db.Collection("chat_threads").Find(ctx, bson.M{
		"participants.user_id": actor.ID,
	}, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list chat threads")
	}
	defer cursor.Close(ctx)

	threads := make([]ThreadSummary, 0)
	if err := cursor.All(ctx, &threads); err != nil {
		return nil, apperr.Wrap(err, "failed to decode chat threads")
	}

	return threads, nil
}

// UnreadTotal sums the actor's unread counters across all threads.
func (s *ChatService) UnreadTotal(actor models.Subject) (int, error) {
	threads, err := s.ListThreads(actor)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, thread := range threads {
		total += thread.UnreadCount[actor.ID.Hex()]
	}

	return total, nil
}

// ArchiveThread marks a thread archived. Archived threads stay readable
// but reject new messages.
func (s *ChatService) ArchiveThread(actor models.Subject, appointmentID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	thread, _, err := s.loadThread(ctx, actor, appointmentID)
	if err != nil {
		return err
	}

	_, err = s.db.Collection("chat_threads").UpdateOne(ctx,
		bson.M{"_id": thread.ID},
		bson.M{"$set": bson.M{"status": models.ThreadArchived, "updated_at": time.Now()}},
	)
	if err != nil {
		return apperr.Wrap(err, "failed to archive chat thread")
	}

	logger.LogChatEvent("thread_archived", thread.ID.Hex(), actor.ID.Hex(), nil)

	return nil
}

// loadThread resolves the appointment's thread with the full access
// gate: the actor must be a party and communication must be enabled.
func (s *ChatService) loadThread(ctx context.Context, actor models.Subject, appointmentID primitive.ObjectID) (*models.ChatThread, *models.Appointment, error) {
	var appointment models.Appointment
	err := s.db.Collection("appointments").FindOne(ctx, bson.M{"_id": appointmentID}).Decode(&appointment)
	if err == mongo.ErrNoDocuments {
		return nil, nil, apperr.ErrCommunicationNotEnabled
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "failed to load appointment")
	}

	if !appointment.IsParty(actor.ID) {
		return nil, nil, apperr.ErrAccessDenied
	}
	if !appointment.CommunicationReady() {
		return nil, nil, apperr.ErrCommunicationNotEnabled
	}

	var thread models.ChatThread
	err = s.db.Collection("chat_threads").FindOne(ctx, bson.M{
		"appointment_id": appointmentID,
	}).Decode(&thread)
	if err == mongo.ErrNoDocuments {
		return nil, nil, apperr.ErrThreadNotFound
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "failed to load chat thread")
	}

	return &thread, &appointment, nil
}

// partyNames resolves display names for thread membership. Lookup
// failures degrade to empty names rather than failing provisioning.
func (s *ChatService) partyNames(ctx context.Context, appointment *models.Appointment) (string, string) {
	var patient struct {
		Name string `bson:"name"`
	}
	var professional struct {
		Name string `bson:"name"`
	}

	if err := s.db.Collection("patients").FindOne(ctx, bson.M{"_id": appointment.PatientID}).Decode(&patient); err != nil {
		logger.WithError(err).Warn("Failed to resolve patient name for thread")
	}
	if err := s.db.Collection("professionals").FindOne(ctx, bson.M{"_id": appointment.ProfessionalID}).Decode(&professional); err != nil {
		logger.WithError(err).Warn("Failed to resolve professional name for thread")
	}

	return patient.Name, professional.Name
}
