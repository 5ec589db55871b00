// Package notify delivers transactional mail for the auth flows. The
// service only ever hands a plaintext credential to a Mailer; it is never
// logged or persisted anywhere else.
package notify

import "context"

// WelcomeMail carries everything the welcome template needs.
type WelcomeMail struct {
	To                string
	FirstName         string
	TenantName        string
	TempPassword      string
	VerificationToken string
}

// ResetMail carries the password reset link payload.
type ResetMail struct {
	To         string
	FirstName  string
	TenantName string
	ResetToken string
}

// Mailer sends transactional mail. Implementations must be safe for
// concurrent use; the service calls them from background goroutines.
type Mailer interface {
	SendWelcome(ctx context.Context, m WelcomeMail) error
	SendPasswordReset(ctx context.Context, m ResetMail) error
}

// Noop discards all mail. Useful in tests and local development.
type Noop struct{}

func (Noop) SendWelcome(context.Context, WelcomeMail) error     { return nil }
func (Noop) SendPasswordReset(context.Context, ResetMail) error { return nil }
