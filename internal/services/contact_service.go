// Package services – ContactService
//
// This file implements ContactService, the application-level component that
// owns one contact submission from receipt to a terminal outcome:
//
//	Received -> Validating -> RateLimiting -> Dispatching -> Succeeded | DispatchFailed
//
// Validation runs first so malformed submissions never consume quota. A
// submission carrying an idempotency key reserves that key before the
// limiter runs. A key that already succeeded with the same content is
// replayed from the store without touching the limiter or the mail provider.
//
// Observability: Submit is OpenTelemetry-instrumented and logs through the
// zerolog logger carried by the request context.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
	"github.com/Aman-02003/portfolio-contact/internal/mail"
	"github.com/Aman-02003/portfolio-contact/internal/ratelimit"
	"github.com/Aman-02003/portfolio-contact/internal/repo"
	"github.com/Aman-02003/portfolio-contact/internal/validation"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MsgSent is returned to the visitor once both emails went out.
const MsgSent = "Message sent successfully! I'll get back to you soon."

// Dispatcher sends the owner notification and visitor confirmation.
// *mail.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, s domain.ContactSubmission) mail.Outcome
}

// SubmitInput is one inbound submission plus its transport metadata.
type SubmitInput struct {
	ClientKey      string // rate-limit identifier, e.g. "ip:203.0.113.7"
	RequestID      string
	IdempotencyKey string // optional
	Submission     domain.ContactSubmission
}

// ContactService validates, rate limits, and dispatches contact submissions.
//
// DB is optional: when nil the delivery log and idempotency replays are
// disabled and every submission goes through the full pipeline.
type ContactService struct {
	DB         *gorm.DB
	Limiter    *ratelimit.Limiter
	Dispatcher Dispatcher

	IdempotencyTTL time.Duration
	// PendingTTL bounds how long an in-flight reservation blocks its key;
	// zero means five minutes.
	PendingTTL time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Submit runs one submission through the pipeline.
//
// Errors:
//   - *validation.Error when a rule fails (no quota consumed)
//   - *RateLimitError (matches ErrRateLimited) when the window is exhausted
//   - *DispatchError (matches ErrDispatchFailed) when either send fails
//   - ErrIdempotencyConflict when the key was used for different content
//   - ErrIdempotencyInFlight when the key is held by a running submission
func (s *ContactService) Submit(ctx context.Context, in SubmitInput) (domain.SubmissionResult, error) {
	tr := otel.Tracer("services/ContactService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("client.key", in.ClientKey),
			attribute.String("request.id", in.RequestID),
			attribute.Bool("idempotency.present", in.IdempotencyKey != ""),
		),
	)
	defer span.End()

	lg := zerolog.Ctx(ctx)
	now := s.now()

	// Validating
	if err := validation.Validate(in.Submission); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			span.SetAttributes(attribute.String("contact.rule", string(verr.Rule)))
		}
		span.SetStatus(codes.Error, "validation")
		return domain.SubmissionResult{Error: err.Error()}, err
	}
	sub := validation.Normalize(in.Submission)

	// Reserving the idempotency key
	resv, prev, err := s.reserve(ctx, in, sub, now)
	if err != nil {
		span.SetStatus(codes.Error, "idempotency")
		return domain.SubmissionResult{}, err
	}
	if prev != nil {
		span.SetAttributes(attribute.Bool("idempotency.replayed", true))
		lg.Debug().Str("delivery_id", prev.DeliveryID).Msg("contact submission replayed")
		return domain.SubmissionResult{Success: true, Message: prev.Message, Replayed: true}, nil
	}

	// RateLimiting
	dec, err := s.Limiter.Allow(ctx, in.ClientKey, now)
	if err != nil {
		lg.Warn().Err(err).Msg("rate limit store unavailable, admitting request")
	}
	span.SetAttributes(
		attribute.Int("ratelimit.count", dec.Count),
		attribute.Int("ratelimit.remaining", dec.Remaining),
	)
	if !dec.Allowed {
		s.release(ctx, resv)
		span.SetStatus(codes.Error, "rate limited")
		return domain.SubmissionResult{}, &RateLimitError{
			RetryAfter: dec.RetryAfter(now),
			ResetAt:    dec.ResetAt,
		}
	}

	// Dispatching
	start := time.Now()
	out := s.Dispatcher.Dispatch(ctx, sub)
	elapsed := time.Since(start)

	deliveryID := s.recordDelivery(ctx, in, out, elapsed)

	if !out.OK() {
		s.release(ctx, resv)
		derr := &DispatchError{Step: string(out.Step), Err: out.Err}
		span.RecordError(derr)
		span.SetStatus(codes.Error, "dispatch failed")
		lg.Error().
			Err(out.Err).
			Str("step", string(out.Step)).
			Dur("elapsed", elapsed).
			Msg("contact dispatch failed")
		return domain.SubmissionResult{}, derr
	}

	s.complete(ctx, resv, deliveryID, now)
	lg.Info().
		Str("delivery_id", deliveryID).
		Dur("elapsed", elapsed).
		Msg("contact submission delivered")
	return domain.SubmissionResult{Success: true, Message: MsgSent}, nil
}

func (s *ContactService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// reserve claims the idempotency key before any quota or mail is spent.
// It returns the reservation ID to settle later, or the stored success to
// replay. A key already bound to different content or still in flight is an
// error. Store failures are logged and the submission proceeds unprotected.
func (s *ContactService) reserve(ctx context.Context, in SubmitInput, sub domain.ContactSubmission, now time.Time) (string, *domain.Idempotency, error) {
	if s.DB == nil || in.IdempotencyKey == "" {
		return "", nil, nil
	}
	fp := sub.Fingerprint()
	rec, err := repo.ReserveIdempotency(ctx, s.DB, in.ClientKey, in.IdempotencyKey, fp, now, s.pendingTTL())
	switch {
	case err == nil:
		return rec.ID, nil, nil
	case errors.Is(err, repo.ErrDuplicate):
		if rec.Fingerprint != fp {
			return "", nil, ErrIdempotencyConflict
		}
		if rec.Pending() {
			return "", nil, ErrIdempotencyInFlight
		}
		return "", rec, nil
	case errors.Is(err, repo.ErrNotFound):
		// The competing reservation was released between insert and read.
		return "", nil, ErrIdempotencyInFlight
	default:
		zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency reservation failed")
		return "", nil, nil
	}
}

func (s *ContactService) pendingTTL() time.Duration {
	if s.PendingTTL > 0 {
		return s.PendingTTL
	}
	return 5 * time.Minute
}

// release frees a reservation after a rejected or failed dispatch so the
// same key can be retried.
func (s *ContactService) release(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := repo.ReleaseIdempotency(context.WithoutCancel(ctx), s.DB, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency release failed")
	}
}

// complete stores the success for idempotent replays. Best effort.
func (s *ContactService) complete(ctx context.Context, id, deliveryID string, now time.Time) {
	if id == "" {
		return
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	err := repo.CompleteIdempotency(context.WithoutCancel(ctx), s.DB, id, deliveryID, http.StatusOK, MsgSent, now.Add(ttl))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency record write failed")
	}
}

// recordDelivery appends the dispatch outcome to the delivery log and returns
// its ID. Failures are logged and never change the response.
func (s *ContactService) recordDelivery(ctx context.Context, in SubmitInput, out mail.Outcome, elapsed time.Duration) string {
	if s.DB == nil {
		return ""
	}
	d := &domain.Delivery{
		RequestID:  in.RequestID,
		ClientKey:  in.ClientKey,
		Outcome:    out.Status.String(),
		FailedStep: string(out.Step),
		DurationMS: elapsed.Milliseconds(),
	}
	if _, err := repo.CreateDelivery(ctx, s.DB, d); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("delivery log write failed")
		return ""
	}
	return d.ID
}
