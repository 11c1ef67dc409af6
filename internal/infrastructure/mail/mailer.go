// Package mail delivers transactional email through whichever provider is
// configured.
package mail

import (
	"context"
	"log/slog"

	"github.com/edge-landings/api/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// NewMailer picks Resend when EMAIL_API_KEY is set, then SMTP, then a mailer
// that only logs.
func NewMailer(cfg *config.Config, log *slog.Logger) Mailer {
	switch {
	case cfg.EmailAPIKey != "":
		return NewResend(cfg.EmailAPIKey, cfg.EmailFrom)
	case cfg.SMTPHost != "":
		return NewSMTP(cfg)
	}
	log.Warn("no email provider configured, emails will only be logged")
	return NewConsole(log)
}
