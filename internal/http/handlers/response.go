// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes shared by all endpoints. Every
// failure body carries an `error` string that is safe to show to visitors;
// `code` and `request_id` are for programmatic handling and log correlation.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 900
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "too_many_requests",
//	  "error": "Too many contact form submissions, please try again later."
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aman-02003/portfolio-contact/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"validation_failed"`
	// Human-readable message (safe to show to users)
	Error string `json:"error" example:"Please enter a valid email address"`
}

// fail aborts the request with an ErrorResponse. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Error:     msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("error", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// NotFound answers any unmatched path or method.
func NotFound(c *gin.Context) {
	fail(c, http.StatusNotFound, ErrCodeNotFound, MsgNotFound)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
