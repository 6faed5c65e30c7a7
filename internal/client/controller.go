// Package client is the form-side half of the contact relay. FormController
// checks a submission with the same rules the server applies, posts it to the
// contact endpoint and turns the response into exactly one Notification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
	"github.com/Aman-02003/portfolio-contact/internal/validation"
)

// Kind classifies a Notification.
type Kind string

const (
	KindSuccess    Kind = "success"
	KindValidation Kind = "validation"
	KindRateLimit  Kind = "rate_limit"
	KindNetwork    Kind = "network"
	KindError      Kind = "error"
	KindBusy       Kind = "busy"
)

// User-facing fallbacks when the server body carries no message.
const (
	MsgNetwork   = "Network error. Please check your connection and try again."
	MsgFailed    = "Failed to send message. Please try again."
	MsgRateLimit = "Too many contact form submissions, please try again later."
	MsgBusy      = "Sending..."
)

// Notification is the single message shown to the visitor for one attempt.
type Notification struct {
	Kind    Kind
	Message string
}

// Notifier renders notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Form is the input surface cleared after a successful send.
type Form interface {
	Reset()
}

// Fields is an in-memory Form.
type Fields struct {
	mu sync.Mutex
	s  domain.ContactSubmission
}

func (f *Fields) Set(s domain.ContactSubmission) {
	f.mu.Lock()
	f.s = s
	f.mu.Unlock()
}

func (f *Fields) Values() domain.ContactSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *Fields) Reset() { f.Set(domain.ContactSubmission{}) }

// Option configures a FormController.
type Option func(*FormController)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option { return func(c *FormController) { c.http = hc } }

// WithNotifier sets where notifications are rendered.
func WithNotifier(n Notifier) Option { return func(c *FormController) { c.notifier = n } }

// WithForm sets the form reset after success.
func WithForm(f Form) Option { return func(c *FormController) { c.form = f } }

// FormController drives one contact form. At most one submission is in
// flight at a time; a second Submit while busy returns a KindBusy notice
// without contacting the server.
type FormController struct {
	endpoint string
	http     *http.Client
	notifier Notifier
	form     Form

	busy atomic.Bool

	// key is reused across retries of the same content until it succeeds or
	// fails validation, so a retried request cannot send mail twice. Editing
	// any field starts a new key.
	mu    sync.Mutex
	key   string
	keyFP string
}

// New returns a controller posting to baseURL + "/api/contact". A baseURL
// that already ends in "/contact" is used as is.
func New(baseURL string, opts ...Option) *FormController {
	c := &FormController{
		endpoint: contactURL(baseURL),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Endpoint is the URL submissions are posted to.
func (c *FormController) Endpoint() string { return c.endpoint }

// Busy reports whether a submission is in flight.
func (c *FormController) Busy() bool { return c.busy.Load() }

// Submit validates s locally, posts it and renders the outcome.
func (c *FormController) Submit(ctx context.Context, s domain.ContactSubmission) Notification {
	if !c.busy.CompareAndSwap(false, true) {
		return Notification{Kind: KindBusy, Message: MsgBusy}
	}
	defer c.busy.Store(false)

	n := c.submit(ctx, s)
	switch n.Kind {
	case KindSuccess:
		c.rotateKey()
		if c.form != nil {
			c.form.Reset()
		}
	case KindValidation:
		c.rotateKey()
	}
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
	return n
}

func (c *FormController) submit(ctx context.Context, s domain.ContactSubmission) Notification {
	if err := validation.Validate(s); err != nil {
		return Notification{Kind: KindValidation, Message: err.Error()}
	}

	body, err := json.Marshal(s)
	if err != nil {
		return Notification{Kind: KindError, Message: MsgFailed}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Notification{Kind: KindError, Message: MsgFailed}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", c.idempotencyKey(validation.Normalize(s).Fingerprint()))

	lg := zerolog.Ctx(ctx)
	resp, err := c.http.Do(req)
	if err != nil {
		lg.Debug().Err(err).Str("endpoint", c.endpoint).Msg("contact request failed")
		return Notification{Kind: KindNetwork, Message: MsgNetwork}
	}
	defer resp.Body.Close()

	var res domain.SubmissionResult
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		err = json.Unmarshal(raw, &res)
	}
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			return Notification{Kind: KindNetwork, Message: MsgNetwork}
		}
		lg.Debug().Err(err).Int("status", resp.StatusCode).Msg("contact response unreadable")
	}

	switch {
	case resp.StatusCode == http.StatusOK && res.Success:
		return Notification{Kind: KindSuccess, Message: res.Message}
	case resp.StatusCode == http.StatusBadRequest:
		return Notification{Kind: KindValidation, Message: orDefault(res.Error, MsgFailed)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Notification{Kind: KindRateLimit, Message: orDefault(res.Error, MsgRateLimit)}
	default:
		return Notification{Kind: KindError, Message: orDefault(res.Error, MsgFailed)}
	}
}

// idempotencyKey returns the key bound to the submission fingerprint fp.
func (c *FormController) idempotencyKey(fp string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == "" || c.keyFP != fp {
		c.key, c.keyFP = uuid.NewString(), fp
	}
	return c.key
}

func (c *FormController) rotateKey() {
	c.mu.Lock()
	c.key, c.keyFP = "", ""
	c.mu.Unlock()
}

func contactURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/contact") {
		return base
	}
	if strings.HasSuffix(base, "/api") {
		return base + "/contact"
	}
	return base + "/api/contact"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
