package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
	"github.com/Aman-02003/portfolio-contact/internal/mail"
	"github.com/Aman-02003/portfolio-contact/internal/ratelimit"
	"github.com/Aman-02003/portfolio-contact/internal/validation"
)

// ---------- test helpers ----------

func newContactDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:contactsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Delivery{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	out   mail.Outcome
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ domain.ContactSubmission) mail.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out
}

func (f *fakeDispatcher) setOutcome(out mail.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = out
}

func (f *fakeDispatcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var clock = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func newSvc(t *testing.T, db *gorm.DB, d Dispatcher) (*ContactService, *ratelimit.MemoryStore) {
	t.Helper()
	store := ratelimit.NewMemoryStore()
	return &ContactService{
		DB:             db,
		Limiter:        ratelimit.New(store, 15*time.Minute, 5),
		Dispatcher:     d,
		IdempotencyTTL: time.Hour,
		Now:            func() time.Time { return clock },
	}, store
}

func validInput() SubmitInput {
	return SubmitInput{
		ClientKey: "ip:203.0.113.7",
		RequestID: "req-1",
		Submission: domain.ContactSubmission{
			Name:    "Jane Doe",
			Email:   "jane@example.com",
			Subject: "Project Inquiry",
			Message: "I'd like to discuss a freelance project with you.",
		},
	}
}

// gatedDispatcher blocks every Dispatch until release is closed.
type gatedDispatcher struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedDispatcher() *gatedDispatcher {
	return &gatedDispatcher{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatedDispatcher) Dispatch(ctx context.Context, _ domain.ContactSubmission) mail.Outcome {
	g.calls.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return mail.Outcome{Status: mail.DispatchFailed, Step: mail.StepNotification, Err: ctx.Err()}
	}
	return mail.Outcome{Status: mail.Succeeded}
}

// ---------- tests ----------

func TestSubmit_Success_RecordsDelivery(t *testing.T) {
	db := newContactDB(t)
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, db, d)

	res, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Success || res.Message != MsgSent {
		t.Fatalf("unexpected result: %+v", res)
	}
	if d.Calls() != 1 {
		t.Fatalf("expected one dispatch, got %d", d.Calls())
	}

	var rows []domain.Delivery
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("read deliveries: %v", err)
	}
	if len(rows) != 1 || rows[0].Outcome != domain.DeliverySucceeded || rows[0].RequestID != "req-1" {
		t.Fatalf("unexpected delivery log: %+v", rows)
	}
}

func TestSubmit_ValidationFailsBeforeQuota(t *testing.T) {
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, store := newSvc(t, nil, d)

	in := validInput()
	in.Submission.Name = "J"

	// Many invalid submissions must not touch the limiter.
	for i := 0; i < 10; i++ {
		_, err := svc.Submit(context.Background(), in)
		var verr *validation.Error
		if !errors.As(err, &verr) || verr.Rule != validation.RuleNameLength {
			t.Fatalf("expected name_length error, got %v", err)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("invalid submissions consumed quota: %d windows", store.Len())
	}
	if d.Calls() != 0 {
		t.Fatalf("dispatcher must not be called on invalid input")
	}

	// A valid one afterwards is still admitted.
	if _, err := svc.Submit(context.Background(), validInput()); err != nil {
		t.Fatalf("valid submission after invalid ones: %v", err)
	}
}

func TestSubmit_SixthInWindowIsRateLimited(t *testing.T) {
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, nil, d)

	for i := 0; i < 5; i++ {
		if _, err := svc.Submit(context.Background(), validInput()); err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
	}
	_, err := svc.Submit(context.Background(), validInput())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 15*time.Minute {
		t.Fatalf("expected RetryAfter=15m, got %+v", rl)
	}
	if d.Calls() != 5 {
		t.Fatalf("rejected submission must not dispatch; calls=%d", d.Calls())
	}

	// Another identifier is unaffected.
	other := validInput()
	other.ClientKey = "ip:198.51.100.1"
	if _, err := svc.Submit(context.Background(), other); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestSubmit_DispatchFailure(t *testing.T) {
	db := newContactDB(t)
	cause := errors.New("535 auth failed")
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.DispatchFailed, Step: mail.StepNotification, Err: cause}}
	svc, _ := newSvc(t, db, d)

	in := validInput()
	in.IdempotencyKey = "retry-me"
	res, err := svc.Submit(context.Background(), in)
	if !errors.Is(err, ErrDispatchFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected dispatch failure wrapping cause, got %v", err)
	}
	if res.Success {
		t.Fatalf("result must not report success")
	}

	var rows []domain.Delivery
	_ = db.Find(&rows).Error
	if len(rows) != 1 || rows[0].Outcome != domain.DeliveryDispatchFailed || rows[0].FailedStep != "notification" {
		t.Fatalf("unexpected delivery log: %+v", rows)
	}

	// Failures are not remembered for replay.
	var n int64
	db.Model(&domain.Idempotency{}).Count(&n)
	if n != 0 {
		t.Fatalf("failed dispatch must not store an idempotency record")
	}
}

func TestSubmit_IdempotentReplaySkipsDispatchAndQuota(t *testing.T) {
	db := newContactDB(t)
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, db, d)

	in := validInput()
	in.IdempotencyKey = "k-123"

	first, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first submission must not be flagged as replayed")
	}
	for i := 0; i < 10; i++ {
		res, err := svc.Submit(context.Background(), in)
		if err != nil || !res.Success || res.Message != MsgSent || !res.Replayed {
			t.Fatalf("replay %d: res=%+v err=%v", i, res, err)
		}
	}
	if d.Calls() != 1 {
		t.Fatalf("replays must not dispatch again; calls=%d", d.Calls())
	}

	// Quota: only the first submission counted, four more fresh ones fit.
	for i := 0; i < 4; i++ {
		if _, err := svc.Submit(context.Background(), validInput()); err != nil {
			t.Fatalf("fresh submission %d: %v", i+1, err)
		}
	}
	if _, err := svc.Submit(context.Background(), validInput()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit after 5 counted submissions, got %v", err)
	}
}

func TestSubmit_SameKeyDifferentContentIsConflict(t *testing.T) {
	db := newContactDB(t)
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, db, d)

	in := validInput()
	in.IdempotencyKey = "k-edit"
	if _, err := svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	edited := in
	edited.Submission.Message = "Actually, a different question about your availability."
	res, err := svc.Submit(context.Background(), edited)
	if !errors.Is(err, ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got res=%+v err=%v", res, err)
	}
	if res.Success {
		t.Fatalf("edited submission must not report success")
	}
	if d.Calls() != 1 {
		t.Fatalf("edited submission must not dispatch; calls=%d", d.Calls())
	}

	// Whitespace the validator trims is the same submission.
	padded := in
	padded.Submission.Name = "  " + in.Submission.Name + "  "
	if res, err := svc.Submit(context.Background(), padded); err != nil || !res.Replayed {
		t.Fatalf("normalized duplicate should replay, got res=%+v err=%v", res, err)
	}
}

func TestSubmit_InFlightKeyIsRejected(t *testing.T) {
	db := newContactDB(t)
	g := newGatedDispatcher()
	svc, _ := newSvc(t, db, g)

	in := validInput()
	in.IdempotencyKey = "k-slow"

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), in)
		done <- err
	}()
	<-g.entered

	for i := 0; i < 3; i++ {
		res, err := svc.Submit(context.Background(), in)
		if !errors.Is(err, ErrIdempotencyInFlight) || res.Success {
			t.Fatalf("duplicate %d while in flight: res=%+v err=%v", i, res, err)
		}
	}

	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if res, err := svc.Submit(context.Background(), in); err != nil || !res.Replayed {
		t.Fatalf("after completion the key should replay, got res=%+v err=%v", res, err)
	}
	if n := g.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", n)
	}
}

func TestSubmit_ConcurrentSameKeyDispatchesOnce(t *testing.T) {
	db := newContactDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, db, d)

	in := validInput()
	in.IdempotencyKey = "k-double-click"

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fresh   int
		other   int
		unknown []error
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Submit(context.Background(), in)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && !res.Replayed:
				fresh++
			case err == nil, errors.Is(err, ErrIdempotencyInFlight):
				other++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	if len(unknown) > 0 {
		t.Fatalf("unexpected errors: %v", unknown)
	}
	if fresh != 1 || other != 19 {
		t.Fatalf("expected 1 fresh / 19 replayed or in flight, got %d / %d", fresh, other)
	}
	if d.Calls() != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", d.Calls())
	}
}

func TestSubmit_FailedDispatchFreesKey(t *testing.T) {
	db := newContactDB(t)
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.DispatchFailed, Step: mail.StepConfirmation, Err: errors.New("timeout")}}
	svc, _ := newSvc(t, db, d)

	in := validInput()
	in.IdempotencyKey = "k-retry"
	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}

	d.setOutcome(mail.Outcome{Status: mail.Succeeded})
	res, err := svc.Submit(context.Background(), in)
	if err != nil || !res.Success || res.Replayed {
		t.Fatalf("retry after failure should dispatch afresh, got res=%+v err=%v", res, err)
	}
	if d.Calls() != 2 {
		t.Fatalf("expected two dispatches, got %d", d.Calls())
	}
}

func TestSubmit_RateLimitedReleasesKey(t *testing.T) {
	db := newContactDB(t)
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, db, d)

	for i := 0; i < 5; i++ {
		if _, err := svc.Submit(context.Background(), validInput()); err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
	}
	in := validInput()
	in.IdempotencyKey = "k-late"
	if _, err := svc.Submit(context.Background(), in); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	var n int64
	db.Model(&domain.Idempotency{}).Count(&n)
	if n != 0 {
		t.Fatalf("rate-limited submission must not hold its key; rows=%d", n)
	}
}

func TestSubmit_NoDBStillWorks(t *testing.T) {
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, nil, d)

	in := validInput()
	in.IdempotencyKey = "ignored"
	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(context.Background(), in); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if d.Calls() != 2 {
		t.Fatalf("without a DB every submission dispatches; calls=%d", d.Calls())
	}
}

func TestSubmit_DeliveryLogFailureDoesNotChangeResponse(t *testing.T) {
	// DB without tables: every write fails.
	dsn := fmt.Sprintf("file:contactsvc_empty_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, db, d)

	in := validInput()
	in.IdempotencyKey = "k"
	res, err := svc.Submit(context.Background(), in)
	if err != nil || !res.Success {
		t.Fatalf("expected success despite log failure, got res=%+v err=%v", res, err)
	}
}

func TestSubmit_ConcurrentSameClientAdmitsExactlyFive(t *testing.T) {
	d := &fakeDispatcher{out: mail.Outcome{Status: mail.Succeeded}}
	svc, _ := newSvc(t, nil, d)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok, lim int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), validInput())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrRateLimited):
				lim++
			}
		}()
	}
	wg.Wait()
	if ok != 5 || lim != 45 {
		t.Fatalf("expected 5 admitted / 45 limited, got %d / %d", ok, lim)
	}
}

func TestDispatchError_Message(t *testing.T) {
	e := &DispatchError{Step: "confirmation", Err: errors.New("boom")}
	if got := e.Error(); got != "dispatch failed: confirmation: boom" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (&DispatchError{Step: "notification"}).Error(); got != "dispatch failed: notification: unknown error" {
		t.Fatalf("unexpected message %q", got)
	}
}
