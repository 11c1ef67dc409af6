package mail

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
)

// Resend sends through the Resend HTTP API.
type Resend struct {
	client *resend.Client
	from   string
}

func NewResend(apiKey, from string) *Resend {
	return &Resend{client: resend.NewClient(apiKey), from: from}
}

// WithBaseURL points the client at another API host.
func (r *Resend) WithBaseURL(u *url.URL) *Resend {
	r.client.BaseURL = u
	return r
}

func (r *Resend) SendEmail(ctx context.Context, to, subject, html string) error {
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
