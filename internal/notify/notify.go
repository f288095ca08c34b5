// Package notify delivers password reset notifications to account
// holders.
//
// Two implementations exist, selected by the mail.mode configuration
// key: SMTPNotifier sends real mail through a relay, and LogNotifier
// writes the reset link to the diagnostic log for non-production
// environments. The log mode is an explicit operating mode, never a
// silent substitute when SMTP fails.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// resetSubject is the subject line for password reset mail.
const resetSubject = "Reset your password"

// SMTPNotifier sends password reset mail through an SMTP relay.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	baseURL  string
}

// SMTPConfig contains SMTPNotifier settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// BaseURL is the externally reachable dashboard origin used to build
	// reset links.
	BaseURL string
}

// NewSMTPNotifier creates a notifier that delivers through an SMTP relay.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		baseURL:  cfg.BaseURL,
	}
}

// SendPasswordReset mails a reset link carrying the token.
func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("sending reset mail: %w", ctx.Err())
	default:
	}

	resetURL := ResetURL(n.baseURL, token)
	msg := []byte("From: " + n.from + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: " + resetSubject + "\r\n" +
		"\r\n" +
		"A password reset was requested for your account.\r\n" +
		"\r\n" +
		"Reset link (valid for a limited time): " + resetURL + "\r\n" +
		"\r\n" +
		"If you didn't request this, ignore this message.\r\n")

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := smtp.SendMail(addr, auth, n.from, []string{email}, msg); err != nil {
		return fmt.Errorf("sending reset mail: %w", err)
	}
	return nil
}

// LogNotifier surfaces reset links on the diagnostic log instead of
// sending mail. For development and restricted environments only.
type LogNotifier struct {
	logger  *slog.Logger
	baseURL string
}

// NewLogNotifier creates a notifier that logs reset links.
func NewLogNotifier(logger *slog.Logger, baseURL string) *LogNotifier {
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

// SendPasswordReset logs the reset link. The recipient address is logged
// so an operator can correlate the request; the token never leaves the
// process any other way in this mode.
func (n *LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.logger.Warn("password reset link (mail.mode=log, not sent)",
		"email", email,
		"reset_url", ResetURL(n.baseURL, token),
	)
	return nil
}

// ResetURL builds the dashboard reset link for a token.
func ResetURL(baseURL, token string) string {
	return baseURL + "/reset-password?token=" + token
}
