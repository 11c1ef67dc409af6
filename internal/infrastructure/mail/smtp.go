package mail

import (
	"context"
	"fmt"
	netmail "net/mail"
	"net/smtp"

	"github.com/edge-landings/api/internal/config"
)

type smtpMailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg *config.Config) Mailer {
	return &smtpMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.EmailFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *smtpMailer) SendEmail(_ context.Context, to, subject, html string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, html)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	// The envelope sender must be a bare address.
	envelopeFrom := m.from
	if a, err := netmail.ParseAddress(m.from); err == nil {
		envelopeFrom = a.Address
	}
	return m.send(addr, auth, envelopeFrom, []string{to}, []byte(msg))
}
