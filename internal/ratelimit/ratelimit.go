// Package ratelimit implements the fixed-window limiter that caps contact
// submissions per client identifier.
//
// Each identifier gets a counter that starts at the first request and expires
// one window later. A request is admitted while the post-increment count is
// within the limit. The increment and the comparison are a single atomic step
// per key in every Store, so two concurrent requests from the same client can
// never both observe count=4 and both be admitted past a cap of 5.
//
// Notes:
//   - Fixed, not sliding: a client can land Max requests just before a window
//     resets and Max more just after.
//   - Rejected requests still increment the counter; they do not extend the window.
package ratelimit

import (
	"context"
	"time"
)

// Store atomically increments the counter for key and reports the new count
// and when the current window ends. The first increment of a key (or the
// first after expiry) opens a new window of the given length.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

// Decision is the limiter's verdict for one request.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window
// rolls over, rounded up to whole seconds and never below one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return ((wait + time.Second - 1) / time.Second) * time.Second
}

// Limiter admits at most max requests per key per fixed window.
type Limiter struct {
	store  Store
	window time.Duration
	max    int
}

// New constructs a Limiter over store. Non-positive max is coerced to 1.
func New(store Store, window time.Duration, max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{store: store, window: window, max: max}
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Max returns the number of admitted requests per window.
func (l *Limiter) Max() int { return l.max }

// Allow counts one request for key at now and reports whether it is admitted.
//
// When the store fails the request is admitted and the error returned so the
// caller can log it; limiting is abuse mitigation, not a security guarantee.
func (l *Limiter) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window, now)
	if err != nil {
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max}, err
	}
	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.max,
		Count:     count,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
