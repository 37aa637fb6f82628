package handlers

import (
	"nutrivision/internal/middleware"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"

	"github.com/gin-gonic/gin"
)

// ChatHandler exposes the appointment-scoped chat routes.
type ChatHandler struct {
	chats *services.ChatService
}

func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// ListThreads handles GET /api/chats
func (h *ChatHandler) ListThreads(c *gin.Context) {
	subject := middleware.Subject(c)

	threads, err := h.chats.ListThreads(subject)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, threads)
}

// UnreadTotal handles GET /api/chats/unread
func (h *ChatHandler) UnreadTotal(c *gin.Context) {
	subject := middleware.Subject(c)

	total, err := h.chats.UnreadTotal(subject)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"unread": total})
}

// ListMessages handles GET /api/appointments/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	page, limit := pagination(c)

	messages, err := h.chats.ListMessages(subject, id, page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, messages)
}

// PostMessage handles POST /api/appointments/:id/messages
func (h *ChatHandler) PostMessage(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req services.MessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid message payload"})
		return
	}

	message, err := h.chats.PostMessage(subject, id, req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Message sent", message)
}

// MarkRead handles PUT /api/appointments/:id/messages/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	marked, err := h.chats.MarkRead(subject, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Messages marked read", gin.H{"marked": marked})
}

// ArchiveThread handles PUT /api/appointments/:id/chat/archive
func (h *ChatHandler) ArchiveThread(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	if err := h.chats.ArchiveThread(subject, id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Chat thread archived", nil)
}
