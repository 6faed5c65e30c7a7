// Package services defines the business logic of the contact relay.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages and HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"time"
)

var (
	// ErrRateLimited indicates the caller exhausted its submission quota for
	// the current window.
	ErrRateLimited = errors.New("rate limited")

	// ErrDispatchFailed indicates that the owner notification or the sender
	// confirmation could not be delivered.
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrIdempotencyConflict indicates the idempotency key was already used
	// for a submission with different content.
	ErrIdempotencyConflict = errors.New("idempotency key reused with different content")

	// ErrIdempotencyInFlight indicates another request holding the same
	// idempotency key has not finished yet.
	ErrIdempotencyInFlight = errors.New("idempotency key in use")
)

// RateLimitError carries the retry hint for a rejected submission.
// It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// DispatchError wraps the provider error of a failed dispatch together with
// the step that failed. It matches ErrDispatchFailed under errors.Is.
type DispatchError struct {
	Step string
	Err  error
}

func (e *DispatchError) Error() string {
	return ErrDispatchFailed.Error() + ": " + e.Step + ": " + errString(e.Err)
}

func (e *DispatchError) Unwrap() []error { return []error{ErrDispatchFailed, e.Err} }

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
