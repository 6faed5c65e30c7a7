// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Throttle, a process-local token bucket per client IP
// built on golang.org/x/time/rate. It sits in front of every route as coarse
// flood protection. The contact form's own 5-per-15-minutes quota is a
// separate fixed-window limiter enforced by the service layer after
// validation.
//
// Idle buckets are evicted opportunistically. Idempotent replays (marked by
// IdempotencyValidator) and explicitly exempted paths skip the bucket.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientKey returns the identifier used for per-client limits and
// idempotency scoping: "ip:" + the client IP as resolved by Gin.
func ClientKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle holds one token bucket per client key. Safe for concurrent use.
type Throttle struct {
	rps   rate.Limit
	burst int
	skip  map[string]struct{}

	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	lookups uint64
}

// NewThrottle constructs a Throttle refilling rps tokens per second up to
// burst. Requests whose matched route is in skipPaths are never limited.
// Burst values <= 0 are coerced to 1.
func NewThrottle(rps float64, burst int, skipPaths ...string) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return &Throttle{
		rps:     rate.Limit(rps),
		burst:   burst,
		skip:    skip,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// limiterFor returns (and touches) the bucket for key, creating it if
// absent. Every 5000 lookups idle buckets are evicted first, so a stale
// bucket can be dropped even when it is the one being fetched.
func (t *Throttle) limiterFor(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookups++
	if t.lookups >= 5000 {
		for k, b := range t.buckets {
			if now.Sub(b.lastSeen) >= t.ttl {
				delete(t.buckets, k)
			}
		}
		t.lookups = 0
	}

	if b, ok := t.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(t.rps, t.burst)
	t.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// Len reports how many buckets are currently held.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// IsRateBypass reports whether IdempotencyValidator recognized a completed
// idempotency key on this request, which then consumes no tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware. Rejected requests get
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{ "request_id": "...", "code": "too_many_requests", "error": "Too many requests, please slow down." }
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := t.skip[c.FullPath()]; ok || IsRateBypass(c) {
			c.Next()
			return
		}

		if t.limiterFor(ClientKey(c), time.Now()).Allow() {
			c.Next()
			return
		}

		throttled.Inc()
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"error":      "Too many requests, please slow down.",
		})
	}
}
