package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nutrivision/internal/models"
	"nutrivision/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	chain := append([]gin.HandlerFunc{SubjectAuth(nil)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		subject := Subject(c)
		c.JSON(http.StatusOK, gin.H{
			"id":   subject.ID.Hex(),
			"kind": subject.Kind,
			"name": subject.Name,
		})
	})
	router.GET("/protected", chain...)
	return router
}

func TestSubjectAuthRejectsMissingToken(t *testing.T) {
	router := protectedRouter()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestSubjectAuthRejectsMalformedHeader(t *testing.T) {
	router := protectedRouter()

	for _, header := range []string{"garbage", "Bearer ", "Basic abc"} {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code, header)
	}
}

func TestSubjectAuthAcceptsBearerToken(t *testing.T) {
	subjectID := primitive.NewObjectID()
	token, err := utils.GenerateToken(subjectID.Hex(), "Jane", models.KindPatient)
	require.NoError(t, err)

	router := protectedRouter()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), subjectID.Hex())
	assert.Contains(t, recorder.Body.String(), "patient")
}

func TestSubjectAuthAcceptsQueryToken(t *testing.T) {
	// WebSocket upgrades cannot set headers, so the token may arrive as
	// a query parameter
	token, err := utils.GenerateToken(primitive.NewObjectID().Hex(), "Jane", models.KindPatient)
	require.NoError(t, err)

	router := protectedRouter()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected?token="+token, nil)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSubjectAuthRejectsOperatorToken(t *testing.T) {
	token, err := utils.GenerateOperatorToken(primitive.NewObjectID().Hex(), "Ops")
	require.NoError(t, err)

	router := protectedRouter()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRoleGates(t *testing.T) {
	patientToken, err := utils.GenerateToken(primitive.NewObjectID().Hex(), "Jane", models.KindPatient)
	require.NoError(t, err)
	professionalToken, err := utils.GenerateToken(primitive.NewObjectID().Hex(), "Dr. Smith", models.KindProfessional)
	require.NoError(t, err)

	patientRouter := protectedRouter(PatientOnly())
	professionalRouter := protectedRouter(ProfessionalOnly())

	cases := []struct {
		router *gin.Engine
		token  string
		want   int
	}{
		{patientRouter, patientToken, http.StatusOK},
		{patientRouter, professionalToken, http.StatusForbidden},
		{professionalRouter, professionalToken, http.StatusOK},
		{professionalRouter, patientToken, http.StatusForbidden},
	}

	for i, tc := range cases {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		tc.router.ServeHTTP(recorder, req)

		assert.Equal(t, tc.want, recorder.Code, "case %d", i)
	}
}

func TestOperatorAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/operator", OperatorAuth(nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"kind": SubjectKind(c)})
	})

	operatorToken, err := utils.GenerateOperatorToken(primitive.NewObjectID().Hex(), "Ops")
	require.NoError(t, err)
	patientToken, err := utils.GenerateToken(primitive.NewObjectID().Hex(), "Jane", models.KindPatient)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/operator", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "operator")

	// A subject token must never open the operator surface
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/operator", nil)
	req.Header.Set("Authorization", "Bearer "+patientToken)
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

type stubResolver struct {
	subject *models.Subject
	err     error
}

func (r *stubResolver) ResolveSubject(claims *utils.SubjectClaims) (*models.Subject, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.subject, nil
}

func resolvedRouter(resolver SubjectResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", SubjectAuth(resolver), func(c *gin.Context) {
		subject := Subject(c)
		c.JSON(http.StatusOK, gin.H{"id": subject.ID.Hex(), "name": subject.Name})
	})
	return router
}

func TestSubjectAuthRejectsDeactivatedAccount(t *testing.T) {
	// A valid token is not enough once the account behind it is gone
	token, err := utils.GenerateToken(primitive.NewObjectID().Hex(), "Jane", models.KindPatient)
	require.NoError(t, err)

	router := resolvedRouter(&stubResolver{err: errors.New("subject not found")})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestSubjectAuthUsesResolvedIdentity(t *testing.T) {
	subjectID := primitive.NewObjectID()
	token, err := utils.GenerateToken(subjectID.Hex(), "Stale Name", models.KindPatient)
	require.NoError(t, err)

	router := resolvedRouter(&stubResolver{subject: &models.Subject{
		ID:   subjectID,
		Kind: models.KindPatient,
		Name: "Current Name",
	}})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Current Name")
}

func TestOperatorAuthRejectsDeactivatedOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/operator", OperatorAuth(&stubResolver{err: errors.New("subject not found")}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, err := utils.GenerateOperatorToken(primitive.NewObjectID().Hex(), "Ops")
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/operator", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
