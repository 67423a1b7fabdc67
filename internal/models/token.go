// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenType says which transition a verification token gates.
type TokenType string

const (
	TokenInstallerVerification TokenType = "installer_verification"
	TokenCustomerActivation    TokenType = "customer_activation"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TokenInstallerVerification || t == TokenCustomerActivation
}

// VerificationToken is a single-use, time-boxed credential. Only the SHA-256
// hash of the token value is stored; the plaintext exists only in the
// verification link sent to the subject.
//
// Invariant: at most one unused, unexpired token per (record, type) — issuing
// a new one invalidates its predecessors.
type VerificationToken struct { //nolint:govet // fieldalignment not critical for models
	ID                 uuid.UUID  `db:"id" json:"id"`
	TokenHash          string     `db:"token_hash" json:"-"`
	Type               TokenType  `db:"token_type" json:"token_type"`
	RecordID           uuid.UUID  `db:"record_id" json:"record_id"`
	RecordType         RecordType `db:"record_type" json:"record_type"`
	UserID             *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	CustomerContact    string     `db:"customer_contact" json:"customer_contact,omitempty"`
	ExpiresAt          time.Time  `db:"expires_at" json:"expires_at"`
	IsUsed             bool       `db:"is_used" json:"is_used"`
	UsedAt             *time.Time `db:"used_at" json:"used_at,omitempty"`
	RemindersSent      int        `db:"reminders_sent" json:"reminders_sent"`
	LastReminderSentAt *time.Time `db:"last_reminder_sent_at" json:"last_reminder_sent_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
