package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "http://localhost:3000", cfg.App.FrontendURL)

	assert.Equal(t, 30*24*time.Hour, cfg.Security.JWT.Expiry)
	assert.Equal(t, 8*time.Hour, cfg.Security.JWT.OperatorExpiry)

	assert.Equal(t, time.Hour, cfg.Signaling.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.Signaling.MaxEmptyRoomAge)

	assert.Equal(t, "nutrivision", cfg.MongoDB.Database)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("SIGNALING_MAX_EMPTY_ROOM_AGE", "48h")
	t.Setenv("MONGODB_MAX_POOL_SIZE", "42")
	t.Setenv("CORS_ORIGINS", "https://app.example.com,https://ops.example.com")

	cfg := Load()

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, time.Hour, cfg.Security.JWT.Expiry)
	assert.Equal(t, 48*time.Hour, cfg.Signaling.MaxEmptyRoomAge)
	assert.Equal(t, uint64(42), cfg.MongoDB.MaxPoolSize)
	assert.Equal(t, []string{"https://app.example.com", "https://ops.example.com"}, cfg.Server.CORS.AllowedOrigins)
}

func TestMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "not-a-duration")
	t.Setenv("MONGODB_MAX_POOL_SIZE", "lots")

	cfg := Load()

	assert.Equal(t, 30*24*time.Hour, cfg.Security.JWT.Expiry)
	assert.Equal(t, uint64(100), cfg.MongoDB.MaxPoolSize)
}
