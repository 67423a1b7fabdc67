// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"log/slog"
)

// LogGateway writes notifications to the log instead of delivering them.
// Used in development when no SMTP transport is configured.
type LogGateway struct{}

// SendEmail logs the email instead of sending it.
func (LogGateway) SendEmail(_ context.Context, to, subject, _, textBody string) error {
	slog.Info("email (log gateway)", "to", to, "subject", subject, "body", textBody)
	return nil
}

// SendSMS logs the SMS instead of sending it.
func (LogGateway) SendSMS(_ context.Context, to, body string) error {
	slog.Info("sms (log gateway)", "to", to, "body", body)
	return nil
}
