package handlers

import (
	"nutrivision/internal/middleware"
	"nutrivision/internal/models"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes notification retrieval and operator
// announcements.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	subject := middleware.Subject(c)
	page, limit := pagination(c)

	notifications, total, err := h.notifications.ListForSubject(subject, page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, notifications, listMeta(page, limit, total))
}

// Announce handles POST /api/operator/announcements
func (h *NotificationHandler) Announce(c *gin.Context) {
	subject := middleware.Subject(c)

	var req struct {
		TargetKind models.AccountKind `json:"target_kind" binding:"required"`
		Title      string             `json:"title" binding:"required"`
		Body       string             `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "target_kind, title and body are required"})
		return
	}

	if req.TargetKind != models.KindPatient && req.TargetKind != models.KindProfessional {
		utils.ValidationErrorResponse(c, map[string]string{"target_kind": "must be patient or professional"})
		return
	}

	notification, err := h.notifications.Announce(subject.ID, req.TargetKind, req.Title, req.Body)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Announcement sent", notification)
}
