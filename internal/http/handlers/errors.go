// Package handlers defines HTTP-layer error codes and the visitor-facing
// messages of the contact API.
//
// Codes are lowercase snake_case and stable; clients branch on them, while
// `error` strings are meant for display.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeSendFailed          = "send_failed"
	ErrCodeIdempotencyConflict = "idempotency_key_reused"
	ErrCodeIdempotencyInFlight = "idempotency_key_in_use"
)

// Visitor-facing messages.
const (
	MsgRateLimited = "Too many contact form submissions, please try again later."
	MsgSendFailed  = "Failed to send message. Please try again or contact me directly."
	MsgNotFound    = "Endpoint not found"
	MsgInternal    = "Internal server error"

	MsgIdempotencyConflict = "This Idempotency-Key was already used for a different message."
	MsgIdempotencyInFlight = "A submission with this Idempotency-Key is still being processed."
)
