// Package email delivers transactional mail for the portal. Accounts are
// created by an admin, so the welcome email carrying the initial password is
// the one message that must reach its recipient.
package email

import (
	"context"

	"chantier_portal_backend/platform/config"
)

type Sender interface {
	SendWelcomeEmail(ctx context.Context, toEmail, fullName, role, initialPassword, loginURL string) error
	SendAccountSuspendedEmail(ctx context.Context, toEmail, fullName string) error
	SendAccountReactivatedEmail(ctx context.Context, toEmail, fullName, loginURL string) error
}

// NoopSender swallows every message. Used in development and tests.
type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(ctx context.Context, toEmail, fullName, role, initialPassword, loginURL string) error {
	return nil
}

func (NoopSender) SendAccountSuspendedEmail(ctx context.Context, toEmail, fullName string) error {
	return nil
}

func (NoopSender) SendAccountReactivatedEmail(ctx context.Context, toEmail, fullName, loginURL string) error {
	return nil
}

// NewSender picks the configured sender. Email disabled means Noop.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
