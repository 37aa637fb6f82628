package handlers

import (
	"nutrivision/internal/middleware"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"
	"nutrivision/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the three login endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginPatient handles POST /api/auth/patient/login
func (h *AuthHandler) LoginPatient(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "email and password are required"})
		return
	}

	result, err := h.auth.AuthenticatePatient(req.Email, req.Password)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// LoginProfessional handles POST /api/auth/professional/login
func (h *AuthHandler) LoginProfessional(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "email and password are required"})
		return
	}

	result, err := h.auth.AuthenticateProfessional(req.Email, req.Password)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// Session handles GET /api/auth/session. The token alone is not proof
// the account is still welcome; the subject is revalidated against the
// store so deactivated or rejected accounts lose access without waiting
// for token expiry.
func (h *AuthHandler) Session(c *gin.Context) {
	subject := middleware.Subject(c)

	resolved, err := h.auth.ResolveSubject(&utils.SubjectClaims{
		SubjectID: subject.ID.Hex(),
		Kind:      subject.Kind,
		Name:      subject.Name,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, resolved)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout
// is an audit event; the client discards its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	subject := middleware.Subject(c)

	logger.LogUserAction(subject.ID.Hex(), "logout", map[string]interface{}{
		"kind": subject.Kind,
	})

	utils.SuccessResponseWithMessage(c, "Logged out", nil)
}

// LoginOperator handles POST /api/auth/operator/login
func (h *AuthHandler) LoginOperator(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "email and password are required"})
		return
	}

	result, err := h.auth.AuthenticateOperator(req.Email, req.Password)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}
