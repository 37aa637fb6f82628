// ==============================================
// pkg/database/mongodb.go
// ==============================================
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nutrivision/internal/config"
	"nutrivision/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB(cfg config.MongoConfig) error {
	var err error

	once.Do(func() {
		err = connectToMongoDB(cfg)
	})

	return err
}

func connectToMongoDB(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetHeartbeatInterval(cfg.HeartbeatInterval).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)

	logger.Infof("Connected to MongoDB database: %s", cfg.Database)

	go func() {
		if err := createIndexes(); err != nil {
			logger.Warnf("Failed to create indexes: %v", err)
		}
	}()

	return nil
}

// GetDatabase returns the database instance
func GetDatabase() *mongo.Database {
	if database == nil {
		logger.Fatal("Database not initialized. Call InitMongoDB first.")
	}
	return database
}

// GetClient returns the MongoDB client
func GetClient() *mongo.Client {
	if client == nil {
		logger.Fatal("MongoDB client not initialized. Call InitMongoDB first.")
	}
	return client
}

// Disconnect closes the MongoDB connection
func Disconnect() error {
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	}
	return nil
}

// HealthCheck reports connection status for the health endpoint
func HealthCheck() map[string]interface{} {
	if database == nil {
		return map[string]interface{}{
			"status": "disconnected",
			"error":  "database not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return map[string]interface{}{
		"status":   "connected",
		"database": database.Name(),
	}
}

type collectionIndexes struct {
	collection string
	indexes    []mongo.IndexModel
}

// indexSpecs declares every index the service relies on. Key paths must
// match the bson tags on the stored models.
func indexSpecs() []collectionIndexes {
	caseInsensitive := options.Collation{Locale: "en", Strength: 2}

	return []collectionIndexes{
		{
			collection: "patients",
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetUnique(true).SetCollation(&caseInsensitive),
				},
				{
					Keys: bson.D{{Key: "is_active", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "created_at", Value: 1}},
				},
			},
		},
		{
			collection: "professionals",
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetUnique(true).SetCollation(&caseInsensitive),
				},
				{
					Keys: bson.D{{Key: "is_active", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "is_approved", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "professional.specializations", Value: 1}},
				},
			},
		},
		{
			collection: "appointments",
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "professional_id", Value: 1},
						{Key: "date", Value: 1},
						{Key: "time", Value: 1},
					},
					Options: options.Index().
						SetUnique(true).
						SetPartialFilterExpression(bson.M{"slot_held": true}),
				},
				{
					Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "created_at", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "professional_id", Value: 1}, {Key: "created_at", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "approval_status", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "status", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "date", Value: 1}},
				},
			},
		},
		{
			collection: "chat_threads",
			indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "appointment_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "participants.user_id", Value: 1}},
				},
				{
					Keys: bson.D{{Key: "updated_at", Value: -1}},
				},
			},
		},
		{
			collection: "notifications",
			indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "created_at", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "created_at", Value: -1}},
				},
			},
		},
	}
}

// createIndexes creates the indexes the domain relies on. Two of them
// carry correctness, not just speed: the partial unique slot index on
// appointments rejects concurrent bookings of the same professional
// slot, and the unique appointment_id index on chat_threads keeps
// thread provisioning exactly-once under concurrent approvals.
func createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, indexGroup := range indexSpecs() {
		collection := database.Collection(indexGroup.collection)

		if len(indexGroup.indexes) > 0 {
			_, err := collection.Indexes().CreateMany(ctx, indexGroup.indexes)
			if err != nil {
				logger.Warnf("Failed to create indexes for collection %s: %v", indexGroup.collection, err)
				continue
			}
			logger.Debugf("Created %d indexes for collection: %s", len(indexGroup.indexes), indexGroup.collection)
		}
	}

	return nil
}

// GetCollection returns a collection handle
func GetCollection(name string) *mongo.Collection {
	if database == nil {
		logger.Fatal("Database not initialized")
	}
	return database.Collection(name)
}
