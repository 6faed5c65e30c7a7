// Contact HTTP handlers.
//
// This file exposes the contact form endpoint:
//   - POST /contact   (validate, rate limit, and relay a submission by email)
//
// The handler is transport-thin: it binds JSON, derives the client key and
// correlation ID, delegates to ContactService, and maps the typed errors to
// status codes.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// submission with the same content exists for (client, key), the service
// replays the original success and the handler sets `Idempotency-Replayed: true`.
// Reusing a key for different content is 422; a key whose first request is
// still running is 409.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
	"github.com/Aman-02003/portfolio-contact/internal/http/middleware"
	"github.com/Aman-02003/portfolio-contact/internal/services"
	"github.com/Aman-02003/portfolio-contact/internal/validation"
)

// ContactService is the application service behind POST /contact.
type ContactService interface {
	Submit(ctx context.Context, in services.SubmitInput) (domain.SubmissionResult, error)
}

// Handlers groups the HTTP handlers and their dependencies.
type Handlers struct {
	contact     ContactService
	serviceName string
	now         func() time.Time
}

// New constructs Handlers. serviceName is reported by the health endpoint.
func New(contact ContactService, serviceName string) *Handlers {
	return &Handlers{contact: contact, serviceName: serviceName, now: time.Now}
}

// PostContact godoc
// @ID          postContact
// @Summary     Submit the contact form
// @Description Validates the submission, applies the per-client limit (5 per 15 minutes),
// @Description then emails the site owner and sends the visitor a confirmation.
// @Description Supports idempotent retries via the Idempotency-Key header.
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                    false  "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    domain.ContactSubmission  true   "Contact form payload"
//
// @Success     200  {object}  domain.SubmissionResult  "Both emails sent"
// @Failure     400  {object}  handlers.ErrorResponse   "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse   "Idempotency-Key still in use by a running submission"
// @Failure     422  {object}  handlers.ErrorResponse   "Idempotency-Key reused for a different message"
// @Failure     429  {object}  handlers.ErrorResponse   "Too many submissions; see Retry-After"
// @Failure     500  {object}  handlers.ErrorResponse   "Mail delivery failed"
// @Router      /contact [post]
func (h *Handlers) PostContact(c *gin.Context) {
	var req domain.ContactSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ObserveContact(middleware.ContactInvalid)
		fail(c, http.StatusBadRequest, ErrCodeValidationFailed, validation.MsgRequired)
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	res, err := h.contact.Submit(c.Request.Context(), services.SubmitInput{
		ClientKey:      middleware.ClientKey(c),
		RequestID:      middleware.RequestIDFrom(c),
		IdempotencyKey: idemKey,
		Submission:     req,
	})

	var (
		verr *validation.Error
		rerr *services.RateLimitError
	)
	switch {
	case err == nil:
		if res.Replayed {
			c.Header("Idempotency-Replayed", "true")
			middleware.ObserveContact(middleware.ContactReplayed)
		} else {
			middleware.ObserveContact(middleware.ContactSucceeded)
		}
		ok(c, http.StatusOK, res)

	case errors.As(err, &verr):
		middleware.ObserveContact(middleware.ContactInvalid)
		fail(c, http.StatusBadRequest, ErrCodeValidationFailed, verr.Message)

	case errors.As(err, &rerr):
		middleware.ObserveContact(middleware.ContactRateLimited)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rerr.RetryAfter)))
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, MsgRateLimited)

	case errors.Is(err, services.ErrIdempotencyConflict):
		middleware.ObserveContact(middleware.ContactKeyConflict)
		fail(c, http.StatusUnprocessableEntity, ErrCodeIdempotencyConflict, MsgIdempotencyConflict)

	case errors.Is(err, services.ErrIdempotencyInFlight):
		middleware.ObserveContact(middleware.ContactKeyConflict)
		fail(c, http.StatusConflict, ErrCodeIdempotencyInFlight, MsgIdempotencyInFlight)

	case errors.Is(err, services.ErrDispatchFailed):
		middleware.ObserveContact(middleware.ContactDispatchFailed)
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, MsgSendFailed)

	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, MsgSendFailed)
	}
}

// retryAfterSeconds rounds up so a client never retries before the window resets.
func retryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
