// Package mail sends the two emails produced by a contact submission: a
// notification to the site owner and a confirmation to the visitor.
//
// Dispatcher owns the ordering and failure semantics; Sender is the
// transport seam, implemented for SMTP by SMTPSender and by fakes in tests.
package mail

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when credentials or addresses needed to send
// are missing. It surfaces as a dispatch failure, never at startup.
var ErrNotConfigured = errors.New("mail: provider not configured")

// Message is one outbound email. From is chosen by the Sender.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message. Implementations must honor ctx for
// cancellation and deadlines.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, m Message) error

// Send calls f(ctx, m).
func (f SenderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }
