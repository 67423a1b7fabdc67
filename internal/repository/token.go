// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
)

// CreateToken inserts a new verification token row.
func (r *Repository) CreateToken(ctx context.Context, t *models.VerificationToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO verification_tokens (
			id, token_hash, token_type, record_id, record_type, user_id,
			customer_contact, expires_at, is_used, used_at, reminders_sent,
			last_reminder_sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.Type, t.RecordID, t.RecordType, t.UserID,
		t.CustomerContact, t.ExpiresAt, t.IsUsed, t.UsedAt, t.RemindersSent,
		t.LastReminderSentAt, t.CreatedAt)
	return err
}

// GetTokenByHash retrieves a verification token by its hash.
func (r *Repository) GetTokenByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error) {
	var t models.VerificationToken
	err := r.q.GetContext(ctx, &t, `
		SELECT * FROM verification_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapGet(err)
	}
	return &t, nil
}

// InvalidatePriorTokens marks every unused token for (record, type) as used,
// enforcing the single-live-token rule before a new one is inserted.
func (r *Repository) InvalidatePriorTokens(ctx context.Context, recordID uuid.UUID, tokenType models.TokenType, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE verification_tokens SET is_used = 1, used_at = ?
		WHERE record_id = ? AND token_type = ? AND is_used = 0`,
		now, recordID, tokenType)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConsumeToken marks the token used with a compare-and-set, guaranteeing
// at-most-once consumption under concurrent duplicate requests. Returns false
// when the token was already used.
func (r *Repository) ConsumeToken(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE verification_tokens SET is_used = 1, used_at = ?
		WHERE id = ? AND is_used = 0`,
		now, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// RecordTokenReminder bumps the reminder counter and timestamp on a token.
// The counters, not wall-clock arithmetic, drive the activation reminder cap,
// so a paused scheduler neither skips nor duplicates reminders.
func (r *Repository) RecordTokenReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE verification_tokens
		SET reminders_sent = reminders_sent + 1, last_reminder_sent_at = ?
		WHERE id = ? AND is_used = 0`,
		at, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// ListActivationTokensDue returns unused, unexpired customer-activation
// tokens eligible for a reminder: under the cap, past the initial delay, and
// outside the cooldown window.
func (r *Repository) ListActivationTokensDue(ctx context.Context, now time.Time, maxReminders int, initialDelay, cooldown time.Duration) ([]models.VerificationToken, error) {
	createdBefore := now.Add(-initialDelay)
	lastSentBefore := now.Add(-cooldown)

	var ts []models.VerificationToken
	err := r.q.SelectContext(ctx, &ts, `
		SELECT * FROM verification_tokens
		WHERE token_type = ? AND is_used = 0 AND expires_at > ?
		  AND reminders_sent < ?
		  AND ((last_reminder_sent_at IS NULL AND created_at <= ?)
		       OR last_reminder_sent_at <= ?)
		ORDER BY created_at`,
		models.TokenCustomerActivation, now, maxReminders, createdBefore, lastSentBefore)
	return ts, err
}

// DeleteExpiredTokens bulk-removes tokens past their expiry. Idempotent and
// safe to run concurrently with issuance.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM verification_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
