// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a fixed-window request limiter for the public contact
// endpoint: at most N requests per window per client IP, with the window
// resetting on the first request after expiry. Like the token-bucket limiter
// in ratelimit.go it is process-local by design; the contract ("N per window
// per key") would move to a shared store for horizontally scaled deployments.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// windowEntry tracks one key's current window.
type windowEntry struct {
	windowStart time.Time
	count       int
}

// FixedWindowLimiter counts requests per key within fixed time windows.
// Entries for expired windows are evicted opportunistically during lookups
// to bound memory. Safe for concurrent use.
type FixedWindowLimiter struct {
	window time.Duration
	max    int

	mu      sync.Mutex
	entries map[string]*windowEntry

	cleanupN uint64

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewFixedWindowLimiter constructs a limiter admitting max requests per
// window per key. max <= 0 is coerced to 1; window <= 0 defaults to a minute.
func NewFixedWindowLimiter(window time.Duration, max int) *FixedWindowLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		window:  window,
		max:     max,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it is within the
// window's budget. The first request after a window expires resets the
// count.
func (l *FixedWindowLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic GC after a threshold of lookups.
	l.cleanupN++
	if l.cleanupN >= 5000 {
		for k, e := range l.entries {
			if now.Sub(e.windowStart) >= l.window {
				delete(l.entries, k)
			}
		}
		l.cleanupN = 0
	}

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = &windowEntry{windowStart: now, count: 1}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// RetryAfter reports the seconds until key's current window expires, rounded
// up, minimum 1. Used for the Retry-After header on 429 responses.
func (l *FixedWindowLimiter) RetryAfter(key string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return 1
	}
	left := l.window - now.Sub(e.windowStart)
	if left <= 0 {
		return 1
	}
	secs := int((left + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Handler returns a Gin middleware enforcing the limiter keyed by client IP.
// Over-budget requests get 429 with the standard error envelope.
func (l *FixedWindowLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if l.Allow(key) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(l.RetryAfter(key)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "too many requests, try again later",
		})
	}
}
