package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/agora-social/agora/backend/internal/cache"
	"github.com/agora-social/agora/backend/internal/errors"
	"github.com/agora-social/agora/backend/internal/metrics"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Scope labels the limiter in metrics and Redis keys
	Scope string
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc identifies the client; defaults to the caller id, then IP
	KeyFunc func(c *gin.Context) string
}

// ClientKey identifies authenticated callers by user id and everyone else
// by IP.
func ClientKey(c *gin.Context) string {
	if id := c.GetString("user_id"); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// DefaultRateLimitConfig returns the general API limit
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope:   "default",
		Limit:   100,
		Window:  time.Minute,
		KeyFunc: ClientKey,
	}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope:   "auth",
		Limit:   10,
		Window:  time.Minute,
		KeyFunc: ClientKey,
	}
}

// EngagementRateLimitConfig limits likes, follows and comments
func EngagementRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope:   "engagement",
		Limit:   60,
		Window:  time.Minute,
		KeyFunc: ClientKey,
	}
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// Allow checks if a request is allowed based on token availability
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// GetRetryAfter returns seconds to wait before next request
func (tb *TokenBucket) GetRetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

// full reports whether the bucket has refilled completely, meaning the
// client has been idle for at least one window.
func (tb *TokenBucket) full() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	return tb.tokens >= tb.maxTokens
}

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.Mutex
}

func newRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
}

// Allow checks if key may make a request and returns the retry delay when
// it may not.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	if bucket.Allow() {
		return true, 0
	}
	return false, bucket.GetRetryAfter()
}

// Sweep drops the buckets of idle clients.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.full() {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.Window)
	defer ticker.Stop()
	for range ticker.C {
		rl.Sweep()
	}
}

// NewRateLimiter creates an in-process rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	rl := newRateLimiter(config)
	go rl.sweepLoop()

	return func(c *gin.Context) {
		ok, retryAfter := rl.Allow(rl.config.KeyFunc(c))
		if !ok {
			rejectRateLimited(c, rl.config, retryAfter)
			return
		}
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, config RateLimitConfig, retryAfter int) {
	metrics.Get().RateLimitExceededTotal.WithLabelValues(config.Scope).Inc()
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
	c.Header("X-RateLimit-Remaining", "0")
	util.RespondWithAPIError(c, errors.RateLimited(""))
}

// RateLimit uses Redis when it is configured so limits hold across
// instances, and an in-process limiter otherwise.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	if rc := cache.GetRedisClient(); rc != nil {
		return RedisRateLimitMiddleware(rc, config)
	}
	return NewRateLimiter(config)
}
