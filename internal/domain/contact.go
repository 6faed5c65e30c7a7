// Package domain defines the core types of the contact relay: the transient
// contact submission and its result, plus the GORM models backing the
// delivery log and idempotency records.
package domain

// ContactSubmission is one contact-form payload submitted by a visitor.
// It lives only for the duration of a request and is never persisted.
type ContactSubmission struct {
	Name    string `json:"name"    example:"Jane Doe"`
	Email   string `json:"email"   example:"jane@example.com"`
	Subject string `json:"subject" example:"Project Inquiry"`
	Message string `json:"message" example:"I'd like to discuss a freelance project with you."`
}

// SubmissionResult is the outcome reported back to the client form.
// Exactly one of Message (on success) or Error (on failure) is set.
type SubmissionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// Replayed is set when the result was served from a stored idempotent
	// success instead of a fresh dispatch.
	Replayed bool `json:"-"`
}
