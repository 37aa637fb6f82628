package middleware

import (
	"strings"

	"nutrivision/internal/models"
	"nutrivision/internal/utils"
	"nutrivision/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubjectResolver revalidates token claims against the account store so
// a deactivated or revoked account loses access before its token
// expires.
type SubjectResolver interface {
	ResolveSubject(claims *utils.SubjectClaims) (*models.Subject, error)
}

// SubjectAuth validates a patient/professional bearer token, checks the
// account is still active through the resolver, and places the subject
// identity in the request context. WebSocket upgrades can pass the
// token as a query parameter since browsers cannot set headers on the
// upgrade request. A nil resolver skips the account check.
func SubjectAuth(resolver SubjectResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Missing or malformed authorization token")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			logger.WithError(err).Debug("Token validation failed")
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.SubjectID)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		if resolver != nil {
			subject, err := resolver.ResolveSubject(claims)
			if err != nil {
				logger.WithError(err).Debug("Subject revalidation failed")
				utils.UnauthorizedResponse(c, "Account not found or inactive")
				c.Abort()
				return
			}
			c.Set("subject_id", subject.ID)
			c.Set("subject_kind", subject.Kind)
			c.Set("subject_name", subject.Name)
			c.Next()
			return
		}

		c.Set("subject_id", id)
		c.Set("subject_kind", claims.Kind)
		c.Set("subject_name", claims.Name)

		c.Next()
	}
}

// PatientOnly restricts a route to patient subjects. Must follow
// SubjectAuth.
func PatientOnly() gin.HandlerFunc {
	return requireKind(models.KindPatient)
}

// ProfessionalOnly restricts a route to professional subjects. Must
// follow SubjectAuth.
func ProfessionalOnly() gin.HandlerFunc {
	return requireKind(models.KindProfessional)
}

func requireKind(kind models.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if SubjectKind(c) != kind {
			utils.ForbiddenResponse(c, "Access denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OperatorAuth validates an operator token and revalidates the account
// through the resolver. Operator tokens are signed with a separate
// salt, so a subject token never passes here.
func OperatorAuth(resolver SubjectResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Missing or malformed authorization token")
			c.Abort()
			return
		}

		claims, err := utils.ValidateOperatorToken(tokenString)
		if err != nil {
			logger.WithError(err).Debug("Operator token validation failed")
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.SubjectID)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		if resolver != nil {
			if _, err := resolver.ResolveSubject(claims); err != nil {
				logger.WithError(err).Debug("Operator revalidation failed")
				utils.UnauthorizedResponse(c, "Account not found or inactive")
				c.Abort()
				return
			}
		}

		c.Set("subject_id", id)
		c.Set("subject_kind", models.KindOperator)
		c.Set("subject_name", claims.Name)

		c.Next()
	}
}

// Subject reconstructs the authenticated subject from the context.
func Subject(c *gin.Context) models.Subject {
	id, _ := c.Get("subject_id")
	objectID, _ := id.(primitive.ObjectID)

	return models.Subject{
		ID:   objectID,
		Kind: SubjectKind(c),
		Name: c.GetString("subject_name"),
	}
}

// SubjectKind returns the authenticated account kind.
func SubjectKind(c *gin.Context) models.AccountKind {
	kind, _ := c.Get("subject_kind")
	accountKind, _ := kind.(models.AccountKind)
	return accountKind
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, true
		}
		return "", false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}

	return tokenString, true
}
