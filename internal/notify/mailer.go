// Package notify sends best-effort booking emails. A failed or disabled
// mailer never affects the booking itself.
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends one email. Implementations can be swapped without touching
// callers.
type Mailer interface {
	Send(ctx context.Context, toName, toAddr, subject, html string) error
}

type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	logger    *zap.Logger
}

func NewSendGridMailer(apiKey, fromName, fromEmail string, logger *zap.Logger) *SendGridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toName, toAddr, subject, html string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toAddr)
	message := mail.NewSingleEmail(from, subject, to, "", html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	m.logger.Debug("email sent", zap.String("to", toAddr), zap.String("subject", subject))
	return nil
}

// LogMailer logs instead of sending, for local runs without a SendGrid key.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, toName, toAddr, subject, html string) error {
	m.logger.Info("email suppressed (no mailer configured)",
		zap.String("to", toAddr), zap.String("subject", subject))
	return nil
}
