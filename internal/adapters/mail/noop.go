package mail

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

// NoopMailer logs messages instead of delivering them. It backs the
// local profile, where runs exercise the full pipeline without a mail
// provider.
type NoopMailer struct {
	logger *slog.Logger
}

// NewNoopMailer creates a mailer that drops everything it is given.
func NewNoopMailer(logger *slog.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

// Send logs the message and reports success. Implements ports.Mailer.
func (m *NoopMailer) Send(ctx context.Context, email ports.OutboundEmail) error {
	m.logger.InfoContext(ctx, "email dropped (noop mailer)",
		slog.String("recipient", email.To),
		slog.String("subject", email.Subject),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (m *NoopMailer) Name() string {
	return "mailer"
}

// Check implements ports.HealthChecker. The noop mailer is always ready.
func (m *NoopMailer) Check(ctx context.Context) error {
	return nil
}
