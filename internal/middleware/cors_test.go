package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nutrivision/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsConfig() config.CORSConfig {
	return config.CORSConfig{
		AllowedOrigins:   []string{"https://app.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func corsRouter(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware)
	router.GET("/resource", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORSAllowedOrigin(t *testing.T) {
	router := corsRouter(CORS(corsConfig()))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "https://app.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSUnknownOriginGetsNoAllowHeader(t *testing.T) {
	router := corsRouter(CORS(corsConfig()))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	router.ServeHTTP(recorder, req)

	// The request itself still passes; the browser enforces the block
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSLocalhostPassthrough(t *testing.T) {
	router := corsRouter(CORS(corsConfig()))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	router := corsRouter(CORS(corsConfig()))
	router.OPTIONS("/resource", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/resource", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "GET, POST", recorder.Header().Get("Access-Control-Allow-Methods"))
}

func TestStrictCORSRejectsUnknownOrigin(t *testing.T) {
	router := corsRouter(StrictCORS(corsConfig()))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	router.ServeHTTP(recorder, req)

	// No localhost passthrough on the operator surface
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestStrictCORSAllowsKnownOriginAndNoOrigin(t *testing.T) {
	router := corsRouter(StrictCORS(corsConfig()))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/resource", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Non-browser clients send no Origin at all
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/resource", nil)
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
