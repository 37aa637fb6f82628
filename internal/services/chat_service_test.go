package services

import (
	"fmt"
	"testing"
	"time"

	"nutrivision/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chronologicalMessages(n int) []models.ChatMessage {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	messages := make([]models.ChatMessage, n)
	for i := 0; i < n; i++ {
		messages[i] = models.ChatMessage{
			Content:   fmt.Sprintf("message %d", i+1),
			Type:      models.MessageText,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return messages
}

func TestPaginateMessagesNewestFirst(t *testing.T) {
	messages := chronologicalMessages(25)

	// Page 1 holds the newest messages, in chronological order
	page := paginateMessages(messages, 1, 10)
	require.Len(t, page.Messages, 10)
	assert.Equal(t, "message 16", page.Messages[0].Content)
	assert.Equal(t, "message 25", page.Messages[9].Content)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page = paginateMessages(messages, 2, 10)
	require.Len(t, page.Messages, 10)
	assert.Equal(t, "message 6", page.Messages[0].Content)
	assert.Equal(t, "message 15", page.Messages[9].Content)

	// The last page is the short one, holding the oldest messages
	page = paginateMessages(messages, 3, 10)
	require.Len(t, page.Messages, 5)
	assert.Equal(t, "message 1", page.Messages[0].Content)
	assert.Equal(t, "message 5", page.Messages[4].Content)
}

func TestPaginateMessagesWithinPageOrder(t *testing.T) {
	messages := chronologicalMessages(12)

	page := paginateMessages(messages, 1, 5)
	require.Len(t, page.Messages, 5)
	for i := 1; i < len(page.Messages); i++ {
		assert.True(t, page.Messages[i-1].Timestamp.Before(page.Messages[i].Timestamp),
			"messages within a page must stay chronological")
	}
}

func TestPaginateMessagesBeyondEnd(t *testing.T) {
	messages := chronologicalMessages(5)

	page := paginateMessages(messages, 4, 10)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPaginateMessagesDefaults(t *testing.T) {
	messages := chronologicalMessages(60)

	// Out-of-range page and limit fall back to page 1, limit 50
	page := paginateMessages(messages, 0, 0)
	require.Len(t, page.Messages, 50)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, "message 11", page.Messages[0].Content)
	assert.Equal(t, "message 60", page.Messages[49].Content)

	page = paginateMessages(messages, 1, 500)
	assert.Equal(t, 50, page.Limit)
}

func TestPaginateMessagesEmpty(t *testing.T) {
	page := paginateMessages(nil, 1, 20)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
}
