package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nutrivision/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRateLimiterBurst(t *testing.T) {
	limiter := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("client-a"), "request %d within burst", i+1)
	}
	assert.False(t, limiter.Allow("client-a"), "burst exhausted")

	// A different client has its own bucket
	assert.True(t, limiter.Allow("client-b"))
}

func TestCustomRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/limited", CustomRateLimit(1, 2, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/limited", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		router.ServeHTTP(recorder, req)
		statuses = append(statuses, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestCustomRateLimitSeparatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/limited", CustomRateLimit(1, 1, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/limited", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code, "client %d has its own bucket", i)
	}
}

func TestGetClientKeyPrefersSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Contains(t, getClientKey(c), "ip:")

	subjectID := primitive.NewObjectID()
	c.Set("subject_id", subjectID)
	assert.Equal(t, "subject:"+subjectID.Hex(), getClientKey(c))
}

func TestAPILimiterUsesConfiguredRate(t *testing.T) {
	rl := config.Load().Server.RateLimit
	assert.Equal(t, rl.Rate, apiLimiter.rate)
	assert.Equal(t, rl.Burst, apiLimiter.burst)
}
