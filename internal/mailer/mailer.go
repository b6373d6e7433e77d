// Package mailer delivers confirmation codes to users.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
)

// Mailer delivers a confirmation code to an address.
type Mailer interface {
	SendConfirmationCode(ctx context.Context, to, username, code string) error
}

// New selects the delivery backend from config: SMTP when a host is
// configured, the log otherwise.
func New(cfg config.EmailConfig, logger zerolog.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg, logger)
	}
	return NewLogMailer(logger)
}

// SMTPMailer sends confirmation codes over plain SMTP.
type SMTPMailer struct {
	cfg    config.EmailConfig
	logger zerolog.Logger
}

// NewSMTPMailer creates a new SMTP mailer.
func NewSMTPMailer(cfg config.EmailConfig, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.With().Str("mailer", "smtp").Logger(),
	}
}

// SendConfirmationCode sends the code in a plain-text message.
func (m *SMTPMailer) SendConfirmationCode(ctx context.Context, to, username, code string) error {
	subject := "Your Aurelius confirmation code"
	body := fmt.Sprintf(`Hello %s,

Your confirmation code is:

    %s

Exchange it for an access token at POST /api/v1/auth/token.
If you did not request this code, ignore this message.
`, username, code)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", m.cfg.From, to, subject, body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(m.cfg.Addr(), auth, m.cfg.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	m.logger.Debug().Str("to", to).Msg("confirmation code sent")
	return nil
}

// LogMailer writes confirmation codes to the log. Used in development and
// tests, where no SMTP relay is configured.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a new log mailer.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{
		logger: logger.With().Str("mailer", "log").Logger(),
	}
}

// SendConfirmationCode logs the code instead of sending it.
func (m *LogMailer) SendConfirmationCode(ctx context.Context, to, username, code string) error {
	m.logger.Info().
		Str("to", to).
		Str("username", username).
		Str("code", code).
		Msg("confirmation code issued")
	return nil
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
