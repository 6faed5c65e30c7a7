package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-02003/portfolio-contact/internal/client"
	"github.com/Aman-02003/portfolio-contact/internal/domain"
	"github.com/Aman-02003/portfolio-contact/internal/sysutil"
)

// errNotSent makes the process exit non-zero when the form was not delivered.
var errNotSent = errors.New("message not sent")

// form holds the flag values; it is the Form reset after a successful send.
type form struct {
	domain.ContactSubmission
}

func (f *form) Reset() { f.ContactSubmission = domain.ContactSubmission{} }

func newSubmitCmd() *cobra.Command {
	var (
		f       form
		baseURL string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a message through the contact form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := sysutil.FirstNonEmpty(baseURL, os.Getenv("CONTACT_API_URL"), "http://localhost:3000")
			c := client.New(url,
				client.WithForm(&f),
				client.WithHTTPClient(&http.Client{Timeout: timeout}),
				client.WithNotifier(client.NotifierFunc(func(n client.Notification) {
					printf(cmd, "[%s] %s\n", n.Kind, n.Message)
				})),
			)
			logger(cmd).Debug().Str("endpoint", c.Endpoint()).Msg("submitting contact form")

			n := c.Submit(cmd.Context(), f.ContactSubmission)
			if n.Kind != client.KindSuccess {
				return fmt.Errorf("%w: %s", errNotSent, n.Kind)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "your name")
	fl.StringVar(&f.Email, "email", "", "your email address")
	fl.StringVar(&f.Subject, "subject", "", "message subject")
	fl.StringVar(&f.Message, "message", "", "message body")
	fl.StringVar(&baseURL, "url", "", "contact API base URL (default $CONTACT_API_URL or http://localhost:3000)")
	fl.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}
