package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResolveProvider(t *testing.T) {
	cases := []struct {
		service, host string
		port          int
		want          Provider
	}{
		{"gmail", "", 0, Provider{"smtp.gmail.com", 587}},
		{" Yahoo ", "", 0, Provider{"smtp.mail.yahoo.com", 465}},
		{"gmail", "", 2525, Provider{"smtp.gmail.com", 2525}},
		{"unknown", "mail.example.com", 0, Provider{"mail.example.com", 587}},
		{"", "mail.example.com", 465, Provider{"mail.example.com", 465}},
	}
	for _, tc := range cases {
		got, err := ResolveProvider(tc.service, tc.host, tc.port)
		if err != nil {
			t.Fatalf("ResolveProvider(%q,%q,%d): %v", tc.service, tc.host, tc.port, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveProvider(%q,%q,%d) = %+v; want %+v", tc.service, tc.host, tc.port, got, tc.want)
		}
	}
	if _, err := ResolveProvider("carrier-pigeon", "", 0); err == nil {
		t.Fatalf("expected error for unknown service without host")
	}
}

func TestSMTPSender_MissingCredentials(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Service: "gmail"})
	if s.Configured() {
		t.Fatalf("sender without credentials must not report configured")
	}
	err := s.Send(context.Background(), Message{To: "a@b.co", Subject: "x", Text: "y"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSMTPSender_FromDefaultsToUser(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{User: "me@example.com", Pass: "p"})
	if !s.Configured() || s.cfg.From != "me@example.com" {
		t.Fatalf("From should default to User, got %q", s.cfg.From)
	}
}

func TestSMTPSender_BuildMsg(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{User: "me@example.com", Pass: "p"})
	msg, err := s.buildMsg(Message{
		To:      "owner@example.com",
		ReplyTo: "jane@example.com",
		Subject: "Portfolio Contact: Hello",
		Text:    "plain body",
		HTML:    "<p>rich body</p>",
	})
	if err != nil {
		t.Fatalf("buildMsg: %v", err)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{
		"From: <me@example.com>",
		"To: <owner@example.com>",
		"Reply-To: <jane@example.com>",
		"Subject: Portfolio Contact: Hello",
		"multipart/alternative",
		"text/plain",
		"text/html",
		"plain body",
		"<p>rich body</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("raw message missing %q:\n%s", want, raw)
		}
	}
}

func TestSMTPSender_BuildMsg_BadAddress(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{User: "me@example.com", Pass: "p"})
	if _, err := s.buildMsg(Message{To: "not an address"}); err == nil {
		t.Fatalf("expected address error")
	}
}
