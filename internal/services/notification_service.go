package services

import (
	"context"
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

// NotificationService records durable notifications and pushes them to
// connected recipients. Push delivery is best effort; the record is the
// source of truth.
type NotificationService struct {
	db  *mongo.Database
	hub *websocket.Hub
}

func NewNotificationService(db *mongo.Database, hub *websocket.Hub) *NotificationService {
	return &NotificationService{db: db, hub: hub}
}

// Send records a system notification for one recipient and pushes it if
// the recipient is connected.
func (s *NotificationService) Send(target primitive.ObjectID, title, body string, appointmentID *primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := models.Notification{
		ID:            primitive.NewObjectID(),
		Title:         title,
		Body:          body,
		TargetID:      &target,
		AppointmentID: appointmentID,
		CreatedAt:     time.Now(),
	}

	_, err := s.db.Collection("notifications").InsertOne(ctx, notification)
	if err != nil {
		return apperr.Wrap(err, "failed to store notification")
	}

	s.push(target.Hex(), &notification)

	return nil
}

// Announce records an operator broadcast aimed at one account kind and
// pushes it to every connected account of that kind individually on the
// next fetch; the push here only reaches the explicit target when set.
func (s *NotificationService) Announce(operatorID primitive.ObjectID, targetKind models.AccountKind, title, body string) (*models.Notification, error) {
	if title == "" || body == "" {
		return nil, apperr.New(apperr.Validation, "EMPTY_ANNOUNCEMENT", "Title and body are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := models.Notification{
		ID:         primitive.NewObjectID(),
		Title:      title,
		Body:       body,
		TargetKind: targetKind,
		SentBy:     &operatorID,
		CreatedAt:  time.Now(),
	}

	_, err := s.db.Collection("notifications").InsertOne(ctx, notification)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to store announcement")
	}

	logger.LogUserAction(operatorID.Hex(), "announcement_sent", map[string]interface{}{
		"target_kind": targetKind,
	})

	return &notification, nil
}

// ListForSubject returns the subject's notifications, newest first:
// those addressed to it plus broadcasts aimed at its kind.
func (s *NotificationService) ListForSubject(actor models.Subject, page, limit int) ([]models.Notification, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{"$or": []bson.M{
		{"target_id": actor.ID},
		{"target_id": nil, "target_kind": actor.Kind},
	}}

	collection := s.db.Collection("notifications")

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to count notifications")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to list notifications")
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, apperr.Wrap(err, "failed to decode notifications")
	}

	return notifications, total, nil
}

func (s *NotificationService) push(userID string, notification *models.Notification) {
	if s.hub == nil {
		return
	}

	event := websocket.NewSignalMessage(websocket.EventNotification, notification.Title, map[string]interface{}{
		"notification_id": notification.ID.Hex(),
		"title":           notification.Title,
		"body":            notification.Body,
	})
	if notification.AppointmentID != nil {
		event.AddPayload("appointment_id", notification.AppointmentID.Hex())
	}

	s.hub.EmitToUser(userID, event)
}
