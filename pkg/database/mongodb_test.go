package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func indexKeyPaths(t *testing.T, collection string) []string {
	t.Helper()

	var paths []string
	for _, group := range indexSpecs() {
		if group.collection != collection {
			continue
		}
		for _, model := range group.indexes {
			keys, ok := model.Keys.(bson.D)
			require.True(t, ok, "index keys must be bson.D")
			for _, key := range keys {
				paths = append(paths, key.Key)
			}
		}
	}
	return paths
}

func TestIndexPathsMatchStoredDocuments(t *testing.T) {
	// Thread documents embed participants, and professional
	// qualification data lives under the professional field. Index
	// paths must point at those names or the indexes never match
	// anything.
	assert.Contains(t, indexKeyPaths(t, "chat_threads"), "participants.user_id")
	assert.Contains(t, indexKeyPaths(t, "professionals"), "professional.specializations")
}

func TestCorrectnessIndexesPresent(t *testing.T) {
	assert.Contains(t, indexKeyPaths(t, "chat_threads"), "appointment_id")

	appointmentPaths := indexKeyPaths(t, "appointments")
	assert.Contains(t, appointmentPaths, "professional_id")
	assert.Contains(t, appointmentPaths, "date")
	assert.Contains(t, appointmentPaths, "time")
}
