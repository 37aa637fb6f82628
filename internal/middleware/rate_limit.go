package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nutrivision/internal/config"
	"nutrivision/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RateLimiter tracks per-client token buckets
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       *sync.RWMutex
	rate     int
	burst    int
	cleanup  time.Duration
}

// Visitor represents one client's rate limiting data
type Visitor struct {
	limiter  *TokenBucket
	lastSeen time.Time
}

// TokenBucket implements the token bucket algorithm
type TokenBucket struct {
	tokens   int
	capacity int
	rate     int
	lastTime time.Time
	mu       *sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		mu:       &sync.RWMutex{},
		rate:     rate,
		burst:    burst,
		cleanup:  time.Minute * 3,
	}

	go rl.cleanupVisitors()

	return rl
}

// Allow checks if a request from key is allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	visitor, exists := rl.visitors[key]
	if !exists {
		visitor = &Visitor{
			limiter: &TokenBucket{
				tokens:   rl.burst,
				capacity: rl.burst,
				rate:     rl.rate,
				lastTime: time.Now(),
				mu:       &sync.Mutex{},
			},
			lastSeen: time.Now(),
		}
		rl.visitors[key] = visitor
	}

	visitor.lastSeen = time.Now()
	return visitor.limiter.Allow()
}

// Allow refills by elapsed time and spends one token
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastTime)
	tb.lastTime = now

	tokensToAdd := int(elapsed.Seconds()) * tb.rate
	tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

func (rl *RateLimiter) cleanupVisitors() {
	for {
		time.Sleep(rl.cleanup)

		rl.mu.Lock()
		for key, visitor := range rl.visitors {
			if time.Since(visitor.lastSeen) > rl.cleanup {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Shared limiters per traffic class. The general API limiter takes its
// rate and burst from RATE_LIMIT_RATE / RATE_LIMIT_BURST.
var (
	apiLimiter = newAPILimiter()

	operatorLimiter = NewRateLimiter(200, 50)

	// WebSocket upgrade attempts
	wsLimiter = NewRateLimiter(10, 5)

	// Chat message posts, keyed by subject when authenticated
	messageLimiter = NewRateLimiter(30, 10)

	// Login attempts, deliberately strict
	loginLimiter = NewRateLimiter(5, 3)
)

func newAPILimiter() *RateLimiter {
	rl := config.Load().Server.RateLimit
	return NewRateLimiter(rl.Rate, rl.Burst)
}

// RateLimit limits general API endpoints
func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getClientKey(c)

		if !apiLimiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(apiLimiter.rate))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "60")

			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", "100")
		c.Next()
	}
}

// OperatorRateLimit limits the operator surface
func OperatorRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getClientKey(c)

		if !operatorLimiter.Allow(key) {
			c.Header("X-RateLimit-Limit", "200")
			c.Header("X-RateLimit-Remaining", "0")

			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", "200")
		c.Next()
	}
}

// WebSocketRateLimit limits socket upgrade attempts
func WebSocketRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getClientKey(c)

		if !wsLimiter.Allow(key) {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "WebSocket connection limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// MessageRateLimit limits chat message posts
func MessageRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getClientKey(c)

		if !messageLimiter.Allow(key) {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Message rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// LoginRateLimit limits login attempts
func LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getClientKey(c)

		if !loginLimiter.Allow(key) {
			c.Header("Retry-After", "300")

			utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CustomRateLimit creates a middleware with its own limiter
func CustomRateLimit(rate, burst int, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, burst)

	return func(c *gin.Context) {
		var key string
		if keyFunc != nil {
			key = keyFunc(c)
		} else {
			key = getClientKey(c)
		}

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rate))
			c.Header("X-RateLimit-Remaining", "0")

			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rate))
		c.Next()
	}
}

// getClientKey identifies a client: authenticated subject when present,
// client IP otherwise.
func getClientKey(c *gin.Context) string {
	if id, ok := c.Get("subject_id"); ok {
		if objectID, ok := id.(primitive.ObjectID); ok {
			return "subject:" + objectID.Hex()
		}
	}

	ip := c.ClientIP()

	if forwardedFor := c.GetHeader("X-Forwarded-For"); forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		if len(ips) > 0 {
			ip = strings.TrimSpace(ips[0])
		}
	} else if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		ip = realIP
	}

	return "ip:" + ip
}

// Logger formats HTTP access logs
func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	})
}
