// Package validation holds the contact-form rule set shared by the server
// (authoritative) and the client form controller (early feedback).
//
// Rules run in a fixed order and the first failure wins:
//  1. all four fields present and non-empty
//  2. name at least 2 characters
//  3. subject at least 5 characters
//  4. message at least 10 characters
//  5. email shaped like local@domain.tld
//
// Lengths are counted in runes after NFC normalization and surrounding
// whitespace trimming, so "José" is four characters regardless of how the
// browser composed the accent.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
)

// Rule identifies which validation rule a submission violated.
type Rule string

const (
	RuleRequired      Rule = "required"
	RuleNameLength    Rule = "name_length"
	RuleSubjectLength Rule = "subject_length"
	RuleMessageLength Rule = "message_length"
	RuleEmailFormat   Rule = "email_format"
)

// User-facing messages, one per rule.
const (
	MsgRequired      = "All fields are required"
	MsgNameLength    = "Name must be at least 2 characters long"
	MsgSubjectLength = "Subject must be at least 5 characters long"
	MsgMessageLength = "Message must be at least 10 characters long"
	MsgEmailFormat   = "Please enter a valid email address"
)

// Error reports the first violated rule. Message is safe to show to users.
type Error struct {
	Rule    Rule
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// emailRE is deliberately structural: no whitespace, one '@', a dot in the domain part.
var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type rule struct {
	rule  Rule
	field string
	tag   string
	msg   string
	value func(domain.ContactSubmission) string
}

var rules = []rule{
	{RuleNameLength, "name", "min=2", MsgNameLength, func(s domain.ContactSubmission) string { return s.Name }},
	{RuleSubjectLength, "subject", "min=5", MsgSubjectLength, func(s domain.ContactSubmission) string { return s.Subject }},
	{RuleMessageLength, "message", "min=10", MsgMessageLength, func(s domain.ContactSubmission) string { return s.Message }},
	{RuleEmailFormat, "email", "contact_email", MsgEmailFormat, func(s domain.ContactSubmission) string { return s.Email }},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailRE.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Normalize trims surrounding whitespace and applies Unicode NFC to every field.
func Normalize(s domain.ContactSubmission) domain.ContactSubmission {
	clean := func(v string) string { return norm.NFC.String(strings.TrimSpace(v)) }
	return domain.ContactSubmission{
		Name:    clean(s.Name),
		Email:   clean(s.Email),
		Subject: clean(s.Subject),
		Message: clean(s.Message),
	}
}

// Validate normalizes s and checks it against the rule set. It returns nil
// or an *Error describing the first violated rule. Validate has no side
// effects; calling it repeatedly on the same input yields the same result.
func Validate(s domain.ContactSubmission) error {
	s = Normalize(s)

	for _, v := range []string{s.Name, s.Email, s.Subject, s.Message} {
		if validate.Var(v, "required") != nil {
			return &Error{Rule: RuleRequired, Message: MsgRequired}
		}
	}
	for _, r := range rules {
		if validate.Var(r.value(s), r.tag) != nil {
			return &Error{Rule: r.rule, Field: r.field, Message: r.msg}
		}
	}
	return nil
}
