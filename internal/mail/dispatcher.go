package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
)

// Step names one of the two sends.
type Step string

const (
	StepNotification Step = "notification"
	StepConfirmation Step = "confirmation"
)

// Status is the tagged result of a dispatch.
type Status int

const (
	Succeeded Status = iota
	DispatchFailed
)

func (s Status) String() string {
	if s == Succeeded {
		return "succeeded"
	}
	return "dispatch_failed"
}

// Outcome reports how a dispatch ended. On failure Step names the send that
// failed and Err carries the provider error (for logs only).
type Outcome struct {
	Status Status
	Step   Step
	Err    error
}

// OK reports whether both messages were sent.
func (o Outcome) OK() bool { return o.Status == Succeeded }

// ConfirmationSubject is the fixed subject of the visitor confirmation.
const ConfirmationSubject = "Thank you for contacting me!"

// DispatcherConfig identifies the owner mailbox and bounds each send.
type DispatcherConfig struct {
	OwnerAddr string
	OwnerName string
	Timeout   time.Duration
}

// Dispatcher sends the owner notification and then the visitor confirmation.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
}

// NewDispatcher returns a Dispatcher over sender. A non-positive timeout
// defaults to 10s.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, cfg: cfg}
}

// Dispatch sends both messages for a validated submission.
//
// The confirmation is attempted only after the notification succeeded, so a
// visitor is never told their message arrived when it did not. No retries:
// the first failure ends the dispatch and is reported as DispatchFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, s domain.ContactSubmission) Outcome {
	data := templateData{
		Name:      s.Name,
		Email:     s.Email,
		Subject:   s.Subject,
		Message:   s.Message,
		OwnerName: d.cfg.OwnerName,
	}

	notification, err := d.notification(data)
	if err != nil {
		return Outcome{Status: DispatchFailed, Step: StepNotification, Err: err}
	}
	if err := d.send(ctx, notification); err != nil {
		return Outcome{Status: DispatchFailed, Step: StepNotification, Err: err}
	}

	confirmation, err := d.confirmation(data)
	if err != nil {
		return Outcome{Status: DispatchFailed, Step: StepConfirmation, Err: err}
	}
	if err := d.send(ctx, confirmation); err != nil {
		return Outcome{Status: DispatchFailed, Step: StepConfirmation, Err: err}
	}
	return Outcome{Status: Succeeded}
}

func (d *Dispatcher) send(ctx context.Context, m Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- d.sender.Send(ctx, m) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("send %q: %w", m.Subject, ctx.Err())
	}
}

func (d *Dispatcher) notification(data templateData) (Message, error) {
	if strings.TrimSpace(d.cfg.OwnerAddr) == "" {
		return Message{}, ErrNotConfigured
	}
	text, html, err := render("notification", data)
	if err != nil {
		return Message{}, fmt.Errorf("render notification: %w", err)
	}
	return Message{
		To:      d.cfg.OwnerAddr,
		ReplyTo: data.Email,
		Subject: "Portfolio Contact: " + data.Subject,
		Text:    text,
		HTML:    html,
	}, nil
}

func (d *Dispatcher) confirmation(data templateData) (Message, error) {
	text, html, err := render("confirmation", data)
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Message{
		To:      data.Email,
		Subject: ConfirmationSubject,
		Text:    text,
		HTML:    html,
	}, nil
}
