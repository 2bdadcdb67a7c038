package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/ssehub/errors"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute per key.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from a request. Defaults to UserBasedKey.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a Gin middleware that applies per-key sliding-window rate limiting.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = UserBasedKey
	}

	rl := newRateLimiter(cfg.RequestsPerMinute, time.Now)

	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c)) {
			c.AbortWithStatusJSON(apperrors.RateLimited(cfg.RequestsPerMinute).HTTPStatus,
				apperrors.RateLimited(cfg.RequestsPerMinute).ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// UserBasedKey uses the gateway-supplied X-User-ID, falling back to client IP.
func UserBasedKey(c *gin.Context) string {
	if uid := c.GetHeader("X-User-ID"); uid != "" {
		return "user:" + uid
	}
	return c.ClientIP()
}

type rateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	now       func() time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		now:       now,
		lastSweep: now(),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-time.Minute)
	if now.Sub(rl.lastSweep) > 5*time.Minute {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	valid := filterByTime(rl.requests[key], cutoff)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// sweep drops keys with no requests inside the window. Callers hold mu.
func (rl *rateLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		valid := filterByTime(times, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
