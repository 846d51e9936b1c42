// Package email delivers transactional mail over SMTP.
package email

import (
	"context"

	"agency_os_backend/platform/config"
)

// Sender delivers the emails the application sends.
type Sender interface {
	SendInviteEmail(ctx context.Context, toEmail, displayName, signInURL string) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendInviteEmail(ctx context.Context, toEmail, displayName, signInURL string) error {
	return nil
}

// NewSender returns an SMTP sender, or a no-op sender when email is disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
