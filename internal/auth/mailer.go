package auth

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/karvek/albion-scalper/internal/config"
)

// Mailer delivers verification links to freshly registered addresses.
type Mailer interface {
	SendVerification(email, token string) error
}

// SMTPMailer sends verification mail through a plain SMTP relay with
// STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	baseURL  string
	logger   *logrus.Entry
}

// NewSMTPMailer builds a mailer from the SMTP configuration. It returns
// nil when no username is configured so callers can fall back to
// log-only verification.
func NewSMTPMailer(cfg config.SMTPConfig, logger *logrus.Logger) *SMTPMailer {
	if cfg.Username == "" {
		return nil
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   logger.WithField("component", "mailer"),
	}
}

// SendVerification emails the verification link for token to email.
func (m *SMTPMailer) SendVerification(email, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", m.baseURL, token)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	msg.WriteString("Subject: Verify your email for Albion Scalper\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString("<html><body>")
	msg.WriteString("<h2>Welcome to Albion Scalper!</h2>")
	msg.WriteString("<p>Please click the link below to verify your email address:</p>")
	fmt.Fprintf(&msg, "<p><a href=%q>Verify Email</a></p>", link)
	msg.WriteString("<p>If you did not request this registration, please ignore this email.</p>")
	msg.WriteString("</body></html>")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending verification mail via %s: %w", addr, err)
	}
	m.logger.WithField("email", email).Info("Verification email sent")
	return nil
}
