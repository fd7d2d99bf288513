// Package mailer sends transactional email over SMTP. Without an SMTP
// host configured it degrades to a no-op implementation that only logs,
// so local development never needs mail credentials.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/suenolabs/sueno-api/pkg/observability"
)

// Mailer sends a password reset code to a recipient.
type Mailer interface {
	SendResetCode(to, code string) error
}

// SMTPMailer sends mail through an SMTP relay using STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *observability.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for the given relay. logger may be nil.
func NewSMTPMailer(host string, port int, username, password, from string, logger *observability.Logger) *SMTPMailer {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
		send:     smtp.SendMail,
	}
}

// SendResetCode implements Mailer.
func (m *SMTPMailer) SendResetCode(to, code string) error {
	subject := "Your password reset code"
	body := resetEmailBody(code)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.send(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}

	m.logger.WithField("to", to).Info("reset code email sent")
	return nil
}

func resetEmailBody(code string) string {
	return fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Password Reset</h2>
  <p>Use this code to reset your password:</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">%s</p>
  <p>The code expires in 10 minutes. If you did not request a reset, ignore this email.</p>
</body>
</html>`, code)
}

// NoopMailer logs instead of sending. Used when SMTP is not configured.
type NoopMailer struct {
	logger *observability.Logger
}

// NewNoopMailer creates a mailer that only logs. logger may be nil.
func NewNoopMailer(logger *observability.Logger) *NoopMailer {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &NoopMailer{logger: logger}
}

// SendResetCode implements Mailer.
func (m *NoopMailer) SendResetCode(to, code string) error {
	m.logger.WithFields(map[string]interface{}{
		"to":   to,
		"code": code,
	}).Warn("SMTP not configured, reset code not emailed")
	return nil
}
