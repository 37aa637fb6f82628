// ==============================================
// Environment-driven configuration, no YAML
// ==============================================

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	MongoDB   MongoConfig
	Security  SecurityConfig
	Signaling SignalingConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Port        string
	FrontendURL string
	Debug       bool
}

type ServerConfig struct {
	HTTP      HTTPConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	Rate    int
	Burst   int
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	HeartbeatInterval      time.Duration
}

type SecurityConfig struct {
	JWT JWTConfig
}

type JWTConfig struct {
	Secret         string
	Expiry         time.Duration
	OperatorExpiry time.Duration
}

type SignalingConfig struct {
	// SweepInterval is how often the empty-room sweep runs.
	SweepInterval time.Duration
	// MaxEmptyRoomAge is how long an empty room survives before the
	// sweep purges it. Generous to tolerate reconnect races.
	MaxEmptyRoomAge time.Duration
	// STUNServers are handed to clients joining a signaling room.
	STUNServers []string
}

func Load() *Config {
	return &Config{
		App:       loadAppConfig(),
		Server:    loadServerConfig(),
		MongoDB:   loadMongoConfig(),
		Security:  loadSecurityConfig(),
		Signaling: loadSignalingConfig(),
	}
}

func loadAppConfig() AppConfig {
	return AppConfig{
		Name:        getEnv("APP_NAME", "NutriVision"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		Debug:       getEnvAsBool("DEBUG", false),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		HTTP: HTTPConfig{
			Host:         getEnv("HTTP_HOST", "0.0.0.0"),
			Port:         getEnv("HTTP_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", "30s"),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", "30s"),
			IdleTimeout:  getEnvAsDuration("HTTP_IDLE_TIMEOUT", "60s"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001"),
			AllowedMethods:   getEnvAsSlice("CORS_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders:   getEnvAsSlice("CORS_HEADERS", "Origin,Content-Type,Accept,Authorization,X-Requested-With"),
			AllowCredentials: getEnvAsBool("CORS_CREDENTIALS", true),
			MaxAge:           getEnvAsDuration("CORS_MAX_AGE", "12h"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvAsInt("RATE_LIMIT_RATE", 100),
			Burst:   getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
	}
}

func loadMongoConfig() MongoConfig {
	return MongoConfig{
		URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:               getEnv("MONGODB_DATABASE", "nutrivision"),
		MaxPoolSize:            getEnvAsUint64("MONGODB_MAX_POOL_SIZE", 100),
		MinPoolSize:            getEnvAsUint64("MONGODB_MIN_POOL_SIZE", 5),
		MaxConnIdleTime:        getEnvAsDuration("MONGODB_MAX_IDLE_TIME", "30m"),
		ConnectTimeout:         getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", "10s"),
		ServerSelectionTimeout: getEnvAsDuration("MONGODB_SELECTION_TIMEOUT", "5s"),
		HeartbeatInterval:      getEnvAsDuration("MONGODB_HEARTBEAT_INTERVAL", "10s"),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", "change-me-in-production"),
			Expiry:         getEnvAsDuration("JWT_EXPIRY", "720h"),
			OperatorExpiry: getEnvAsDuration("JWT_OPERATOR_EXPIRY", "8h"),
		},
	}
}

func loadSignalingConfig() SignalingConfig {
	return SignalingConfig{
		SweepInterval:   getEnvAsDuration("SIGNALING_SWEEP_INTERVAL", "1h"),
		MaxEmptyRoomAge: getEnvAsDuration("SIGNALING_MAX_EMPTY_ROOM_AGE", "24h"),
		STUNServers:     getEnvAsSlice("SIGNALING_STUN_SERVERS", "stun:stun.l.google.com:19302"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}
