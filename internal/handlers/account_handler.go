package handlers

import (
	"strconv"

	"nutrivision/internal/middleware"
	"nutrivision/internal/models"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountHandler exposes registration, profile and moderation routes.
type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterPatient handles POST /api/auth/patient/register
func (h *AccountHandler) RegisterPatient(c *gin.Context) {
	var req services.PatientRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid registration payload"})
		return
	}

	result, err := h.accounts.RegisterPatient(req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Account created", result)
}

// RegisterProfessional handles POST /api/auth/professional/register
func (h *AccountHandler) RegisterProfessional(c *gin.Context) {
	var req services.ProfessionalRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid registration payload"})
		return
	}

	professional, err := h.accounts.RegisterProfessional(req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Application submitted and pending review", professional)
}

// Me handles GET /api/accounts/me
func (h *AccountHandler) Me(c *gin.Context) {
	subject := middleware.Subject(c)

	switch subject.Kind {
	case models.KindPatient:
		patient, err := h.accounts.GetPatient(subject.ID)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, patient)

	case models.KindProfessional:
		professional, err := h.accounts.GetProfessional(subject.ID)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, professional)

	default:
		utils.ForbiddenResponse(c, "")
	}
}

// ListProfessionals handles GET /api/professionals
func (h *AccountHandler) ListProfessionals(c *gin.Context) {
	page, limit := pagination(c)
	specialization := c.Query("specialization")

	professionals, total, err := h.accounts.ListProfessionals(specialization, page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, professionals, listMeta(page, limit, total))
}

// GetProfessional handles GET /api/professionals/:id
func (h *AccountHandler) GetProfessional(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "Professional not found")
		return
	}

	professional, err := h.accounts.GetProfessional(id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if !professional.CanPractice() {
		utils.NotFoundResponse(c, "Professional not found")
		return
	}

	utils.SuccessResponse(c, professional)
}

// UpdatePatientProfile handles PUT /api/accounts/patient/profile
func (h *AccountHandler) UpdatePatientProfile(c *gin.Context) {
	subject := middleware.Subject(c)

	var req struct {
		Name    string               `json:"name"`
		Profile models.HealthProfile `json:"profile"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid profile payload"})
		return
	}

	patient, err := h.accounts.UpdatePatientProfile(subject.ID, req.Name, req.Profile)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, patient)
}

// UpdateProfessionalProfile handles PUT /api/accounts/professional/profile
func (h *AccountHandler) UpdateProfessionalProfile(c *gin.Context) {
	subject := middleware.Subject(c)

	var req services.ProfessionalProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid profile payload"})
		return
	}

	professional, err := h.accounts.UpdateProfessionalProfile(subject.ID, req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, professional)
}

// ChangePassword handles PUT /api/accounts/password
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	subject := middleware.Subject(c)

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "current and new password are required"})
		return
	}

	if err := h.accounts.ChangePassword(subject.Kind, subject.ID, req.CurrentPassword, req.NewPassword); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Password updated", nil)
}

// Deactivate handles DELETE /api/accounts/me
func (h *AccountHandler) Deactivate(c *gin.Context) {
	subject := middleware.Subject(c)

	if err := h.accounts.Deactivate(subject.Kind, subject.ID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Account deactivated", nil)
}

// Operator moderation routes

// ListPendingProfessionals handles GET /api/operator/professionals/pending
func (h *AccountHandler) ListPendingProfessionals(c *gin.Context) {
	page, limit := pagination(c)

	professionals, total, err := h.accounts.ListPendingProfessionals(page, limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, professionals, listMeta(page, limit, total))
}

// ApproveProfessional handles POST /api/operator/professionals/:id/approve
func (h *AccountHandler) ApproveProfessional(c *gin.Context) {
	subject := middleware.Subject(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "Application not found")
		return
	}

	professional, err := h.accounts.ApproveProfessional(subject.ID, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Application approved", professional)
}

// RejectProfessional handles POST /api/operator/professionals/:id/reject
func (h *AccountHandler) RejectProfessional(c *gin.Context) {
	subject := middleware.Subject(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "Application not found")
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"reason": "reason is required"})
		return
	}

	professional, err := h.accounts.RejectProfessional(subject.ID, id, req.Reason)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Application rejected", professional)
}

// Shared handler helpers

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func listMeta(page, limit int, total int64) *utils.Meta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &utils.Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
