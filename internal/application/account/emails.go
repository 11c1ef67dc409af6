package account

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	welcomeSubject = "Welcome to Edge Websites - Your Login Information"
	resetSubject   = "Reset Your Edge Websites Password"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #00ff88;">Welcome to Edge Websites!</h2>
  <p>Your account has been created successfully.</p>
  <div style="background: #1a1a1a; padding: 1rem; border-radius: 8px; margin: 1rem 0;">
    <p><strong>Your Login Email:</strong></p>
    <p style="font-size: 1.2rem; color: #00ff88;">{{.Email}}</p>
  </div>
  <p>You can now log in to your dashboard at: <a href="{{.LoginURL}}">{{.LoginURL}}</a></p>
  <p>Best regards,<br>Edge Websites Team</p>
</div>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #00ff88;">Reset Your Password</h2>
  <p>You requested to reset your password for your Edge Websites account.</p>
  <p>Click the button below to reset your password. This link will expire in {{.Expiry}}.</p>
  <div style="text-align: center; margin: 2rem 0;">
    <a href="{{.Link}}" style="display: inline-block; background: #00ff88; color: #000000; padding: 1rem 2rem; text-decoration: none; border-radius: 8px; font-weight: 700;">Reset Password</a>
  </div>
  <p style="color: #ff6b6b; font-weight: bold;">If you didn't request this, you can safely ignore this email. Your password will not be changed.</p>
  <p>Or copy and paste this link into your browser:</p>
  <p style="word-break: break-all; color: #00ff88;">{{.Link}}</p>
  <p>Best regards,<br>Edge Websites Team</p>
</div>`))

func welcomeEmail(siteURL, email string) string {
	return render(welcomeTmpl, map[string]string{"Email": email, "LoginURL": siteURL + "/login.html"})
}

func resetEmail(link string, ttl time.Duration) string {
	return render(resetTmpl, map[string]string{"Link": link, "Expiry": humanDuration(ttl)})
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d == time.Minute:
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", d/time.Minute)
}
