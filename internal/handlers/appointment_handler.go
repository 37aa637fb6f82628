package handlers

import (
	"nutrivision/internal/middleware"
	"nutrivision/internal/models"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentHandler exposes the appointment lifecycle routes.
type AppointmentHandler struct {
	appointments *services.AppointmentService
}

func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Book handles POST /api/appointments
func (h *AppointmentHandler) Book(c *gin.Context) {
	subject := middleware.Subject(c)

	var req services.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid booking payload"})
		return
	}

	appointment, err := h.appointments.Book(subject.ID, req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Appointment requested", appointment)
}

// List handles GET /api/appointments
func (h *AppointmentHandler) List(c *gin.Context) {
	subject := middleware.Subject(c)
	page, limit := pagination(c)

	filter := services.AppointmentFilter{
		ApprovalStatus: models.ApprovalStatus(c.Query("approval_status")),
		Status:         models.ExecutionStatus(c.Query("status")),
		Upcoming:       c.Query("upcoming") == "true",
		Page:           page,
		Limit:          limit,
	}

	appointments, total, err := h.appointments.ListForSubject(subject, filter)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, appointments, listMeta(page, limit, total))
}

// Get handles GET /api/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appointment, err := h.appointments.Get(subject, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, appointment)
}

// Approve handles POST /api/appointments/:id/approve
func (h *AppointmentHandler) Approve(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	appointment, err := h.appointments.Approve(subject.ID, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Appointment approved", appointment)
}

// Reject handles POST /api/appointments/:id/reject
func (h *AppointmentHandler) Reject(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"reason": "reason is required"})
		return
	}

	appointment, err := h.appointments.Reject(subject.ID, id, req.Reason)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Appointment rejected", appointment)
}

// UpdateStatus handles PUT /api/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req services.StatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "invalid status payload"})
		return
	}

	appointment, err := h.appointments.UpdateStatus(subject, id, req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, appointment)
}

// StartCall handles POST /api/appointments/:id/call/start
func (h *AppointmentHandler) StartCall(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req struct {
		CallType models.CallType `json:"call_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"call_type": "call type is required"})
		return
	}

	appointment, err := h.appointments.StartCall(subject, id, req.CallType)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Call started", appointment)
}

// EndCall handles POST /api/appointments/:id/call/end
func (h *AppointmentHandler) EndCall(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req services.CallClose
	// Body is optional; an empty close computes the duration and rates
	// the call good
	_ = c.ShouldBindJSON(&req)

	appointment, err := h.appointments.EndCall(subject, id, req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Call ended", appointment)
}

// CallHistory handles GET /api/appointments/:id/call/history
func (h *AppointmentHandler) CallHistory(c *gin.Context) {
	subject := middleware.Subject(c)

	id, ok := appointmentID(c)
	if !ok {
		return
	}

	history, err := h.appointments.CallHistory(subject, id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, history)
}

func appointmentID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "Appointment not found")
		return primitive.NilObjectID, false
	}
	return id, true
}
