package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nutrivision/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordResponse(t *testing.T, handler func(c *gin.Context)) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("GET", "/", nil)

	handler(c)

	var body APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder, body
}

func TestAppErrorResponseMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{apperr.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{apperr.ErrAccessDenied, http.StatusForbidden, "ACCESS_DENIED"},
		{apperr.ErrSlotConflict, http.StatusConflict, "SLOT_CONFLICT"},
		{apperr.ErrAppointmentNotFound, http.StatusNotFound, "APPOINTMENT_NOT_FOUND"},
		{apperr.ErrCommunicationNotEnabled, http.StatusNotFound, "COMMUNICATION_NOT_ENABLED"},
		{apperr.ErrNoActiveCall, http.StatusBadRequest, "NO_ACTIVE_CALL"},
		{apperr.ErrCallInProgress, http.StatusBadRequest, "CALL_IN_PROGRESS"},
		{apperr.ErrEmptyContent, http.StatusBadRequest, "EMPTY_CONTENT"},
	}

	for _, tc := range cases {
		recorder, body := recordResponse(t, func(c *gin.Context) {
			AppErrorResponse(c, tc.err)
		})

		assert.Equal(t, tc.wantStatus, recorder.Code, tc.wantCode)
		assert.False(t, body.Success)
		require.NotNil(t, body.Error, tc.wantCode)
		assert.Equal(t, tc.wantCode, body.Error.Code)
	}
}

func TestAppErrorResponseHidesInternals(t *testing.T) {
	recorder, body := recordResponse(t, func(c *gin.Context) {
		AppErrorResponse(c, apperr.Wrap(errors.New("dial tcp: connection refused"), "mongo insert failed"))
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.NotNil(t, body.Error)
	assert.NotContains(t, body.Error.Message, "dial tcp")
	assert.NotContains(t, body.Error.Message, "mongo")

	recorder, body = recordResponse(t, func(c *gin.Context) {
		AppErrorResponse(c, errors.New("raw driver error"))
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "Internal server error", body.Error.Message)
}

func TestSuccessResponseEnvelope(t *testing.T) {
	recorder, body := recordResponse(t, func(c *gin.Context) {
		SuccessResponse(c, gin.H{"status": "ok"})
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
	assert.False(t, body.Timestamp.IsZero())
}
