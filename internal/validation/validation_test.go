package validation

import (
	"errors"
	"testing"

	"github.com/Aman-02003/portfolio-contact/internal/domain"
)

func valid() domain.ContactSubmission {
	return domain.ContactSubmission{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Project Inquiry",
		Message: "I'd like to discuss a freelance project with you.",
	}
}

func ruleOf(t *testing.T, err error) Rule {
	t.Helper()
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *validation.Error, got %T (%v)", err, err)
	}
	return ve.Rule
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	s := valid()
	for i := 0; i < 3; i++ {
		if err := Validate(s); err != nil {
			t.Fatalf("run %d: expected valid, got %v", i, err)
		}
	}
	if s != valid() {
		t.Fatalf("Validate must not mutate its input")
	}
}

func TestValidate_MissingFields(t *testing.T) {
	mutators := map[string]func(*domain.ContactSubmission){
		"name":    func(s *domain.ContactSubmission) { s.Name = "" },
		"email":   func(s *domain.ContactSubmission) { s.Email = "" },
		"subject": func(s *domain.ContactSubmission) { s.Subject = "" },
		"message": func(s *domain.ContactSubmission) { s.Message = "   " },
	}
	for field, mut := range mutators {
		t.Run(field, func(t *testing.T) {
			s := valid()
			mut(&s)
			err := Validate(s)
			if got := ruleOf(t, err); got != RuleRequired {
				t.Fatalf("rule = %q; want %q", got, RuleRequired)
			}
			if err.Error() != MsgRequired {
				t.Fatalf("message = %q", err.Error())
			}
		})
	}
}

func TestValidate_RuleOrderAndMessages(t *testing.T) {
	cases := []struct {
		name string
		in   domain.ContactSubmission
		rule Rule
		msg  string
	}{
		{
			name: "everything too short reports name first",
			in:   domain.ContactSubmission{Name: "T", Email: "bad", Subject: "Hi", Message: "Hi"},
			rule: RuleNameLength, msg: MsgNameLength,
		},
		{
			name: "subject before message and email",
			in:   domain.ContactSubmission{Name: "Tom", Email: "bad", Subject: "Hi", Message: "Hi"},
			rule: RuleSubjectLength, msg: MsgSubjectLength,
		},
		{
			name: "message before email",
			in:   domain.ContactSubmission{Name: "Tom", Email: "bad", Subject: "Hello", Message: "short"},
			rule: RuleMessageLength, msg: MsgMessageLength,
		},
		{
			name: "email last",
			in:   domain.ContactSubmission{Name: "Tom", Email: "bad", Subject: "Hello", Message: "long enough text"},
			rule: RuleEmailFormat, msg: MsgEmailFormat,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if got := ruleOf(t, err); got != tc.rule {
				t.Fatalf("rule = %q; want %q", got, tc.rule)
			}
			if err.Error() != tc.msg {
				t.Fatalf("message = %q; want %q", err.Error(), tc.msg)
			}
		})
	}
}

func TestValidate_LengthBoundaries(t *testing.T) {
	s := valid()
	s.Name, s.Subject, s.Message = "Jo", "Hello", "0123456789"
	if err := Validate(s); err != nil {
		t.Fatalf("exact minimum lengths should pass, got %v", err)
	}
}

func TestValidate_CountsRunesAfterNormalization(t *testing.T) {
	s := valid()
	// e + combining acute accent: 2 code points, 1 character after NFC.
	s.Name = "e\u0301"
	if got := ruleOf(t, Validate(s)); got != RuleNameLength {
		t.Fatalf("decomposed single character should fail name length, got %q", got)
	}
	s.Name = "Zoë"
	if err := Validate(s); err != nil {
		t.Fatalf("multi-byte name should pass, got %v", err)
	}
}

func TestValidate_EmailShapes(t *testing.T) {
	good := []string{"a@b.co", "first.last+tag@sub.example.org", "x@y.z"}
	bad := []string{"plain", "no-at.example.com", "a@nodot", "a b@c.d", "a@@b.c", "@b.c", "a@b."}
	for _, e := range good {
		s := valid()
		s.Email = e
		if err := Validate(s); err != nil {
			t.Errorf("%q should be accepted, got %v", e, err)
		}
	}
	for _, e := range bad {
		s := valid()
		s.Email = e
		if got := ruleOf(t, Validate(s)); got != RuleEmailFormat {
			t.Errorf("%q: rule = %q; want %q", e, got, RuleEmailFormat)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(domain.ContactSubmission{Name: "  Jane ", Email: " j@x.io\n", Subject: "\tHi there", Message: "e\u0301 "})
	want := domain.ContactSubmission{Name: "Jane", Email: "j@x.io", Subject: "Hi there", Message: "\u00e9"}
	if got != want {
		t.Fatalf("Normalize = %+v; want %+v", got, want)
	}
}
