// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify sends warranty notifications. The Gateway interface is the
// narrow transport contract; template rendering happens on the caller side
// via the i18n catalog.
package notify

import (
	"context"
	"errors"
)

// ErrSMSDisabled is returned when no SMS transport is configured.
var ErrSMSDisabled = errors.New("sms transport not configured")

// Gateway is the outbound notification transport. Both calls are
// fire-and-forget with an error result; a failure never rolls back the
// lifecycle transition that triggered it.
type Gateway interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
	SendSMS(ctx context.Context, to, body string) error
}
