package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Provider is a well-known SMTP endpoint selected by service name.
type Provider struct {
	Host string
	Port int
}

// providers maps EMAIL_SERVICE values to their submission endpoints.
var providers = map[string]Provider{
	"gmail":      {Host: "smtp.gmail.com", Port: 587},
	"outlook":    {Host: "smtp-mail.outlook.com", Port: 587},
	"hotmail":    {Host: "smtp-mail.outlook.com", Port: 587},
	"office365":  {Host: "smtp.office365.com", Port: 587},
	"yahoo":      {Host: "smtp.mail.yahoo.com", Port: 465},
	"icloud":     {Host: "smtp.mail.me.com", Port: 587},
	"zoho":       {Host: "smtp.zoho.com", Port: 465},
	"fastmail":   {Host: "smtp.fastmail.com", Port: 465},
	"sendgrid":   {Host: "smtp.sendgrid.net", Port: 587},
	"mailgun":    {Host: "smtp.mailgun.org", Port: 587},
	"postmark":   {Host: "smtp.postmarkapp.com", Port: 587},
	"ses":        {Host: "email-smtp.us-east-1.amazonaws.com", Port: 587},
	"mailjet":    {Host: "in-v3.mailjet.com", Port: 587},
	"sparkpost":  {Host: "smtp.sparkpostmail.com", Port: 587},
	"protonmail": {Host: "smtp.protonmail.ch", Port: 587},
}

// ResolveProvider picks the SMTP endpoint. An explicit host wins over the
// service name; port 0 means the provider default (or 587 for custom hosts).
func ResolveProvider(service, host string, port int) (Provider, error) {
	if h := strings.TrimSpace(host); h != "" {
		if port == 0 {
			port = 587
		}
		return Provider{Host: h, Port: port}, nil
	}
	p, ok := providers[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return Provider{}, fmt.Errorf("mail: unknown service %q", service)
	}
	if port != 0 {
		p.Port = port
	}
	return p, nil
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Service string
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	Timeout time.Duration
}

// SMTPSender delivers messages through an authenticated SMTP submission
// endpoint. Each Send dials, authenticates, sends, and closes.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender returns a sender for cfg. Configuration problems are
// reported by Send, not here, so a missing credential never stops the server.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPSender{cfg: cfg}
}

// Configured reports whether credentials and a sender address are present.
func (s *SMTPSender) Configured() bool {
	return s.cfg.User != "" && s.cfg.Pass != "" && s.cfg.From != ""
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	msg, err := s.buildMsg(m)
	if err != nil {
		return err
	}
	client, err := s.newClient()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func (s *SMTPSender) newClient() (*gomail.Client, error) {
	p, err := ResolveProvider(s.cfg.Service, s.cfg.Host, s.cfg.Port)
	if err != nil {
		return nil, err
	}
	opts := []gomail.Option{
		gomail.WithPort(p.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.User),
		gomail.WithPassword(s.cfg.Pass),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.cfg.Timeout))
	}
	// 465 is implicit TLS; everything else upgrades with STARTTLS.
	if p.Port == 465 {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	}
	c, err := gomail.NewClient(p.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

// buildMsg converts a Message into a multipart/alternative MIME message.
func (s *SMTPSender) buildMsg(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to address: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}
