// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
)

// ReplaceReminders cancels every undispatched reminder for the record and
// inserts the given schedule as fresh pending entries, all in one transaction,
// keeping at most one undispatched entry per (record, type).
func (r *Repository) ReplaceReminders(ctx context.Context, recordID uuid.UUID, recordType models.RecordType, entries []models.ReminderEntry) error {
	return r.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.CancelReminders(ctx, recordID); err != nil {
			return err
		}
		for i := range entries {
			e := &entries[i]
			e.RecordID = recordID
			e.RecordType = recordType
			if err := tx.CreateReminder(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateReminder inserts a single reminder entry.
func (r *Repository) CreateReminder(ctx context.Context, e *models.ReminderEntry) error {
	now := time.Now().UTC()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.ReminderPending
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reminder_entries (
			id, record_id, record_type, reminder_type, scheduled_date,
			status, sent_at, failure_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RecordID, e.RecordType, e.Type, e.ScheduledDate,
		e.Status, e.SentAt, e.FailureReason, e.CreatedAt, e.UpdatedAt)
	return err
}

// GetReminder retrieves a reminder entry by ID.
func (r *Repository) GetReminder(ctx context.Context, id uuid.UUID) (*models.ReminderEntry, error) {
	var e models.ReminderEntry
	err := r.q.GetContext(ctx, &e, `SELECT * FROM reminder_entries WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet(err)
	}
	return &e, nil
}

// ListDueReminders returns pending and previously failed entries whose
// scheduled date has arrived. Failed entries reappear here every sweep until
// they send or are cancelled.
func (r *Repository) ListDueReminders(ctx context.Context, asOf time.Time) ([]models.ReminderEntry, error) {
	var es []models.ReminderEntry
	err := r.q.SelectContext(ctx, &es, `
		SELECT * FROM reminder_entries
		WHERE status IN (?, ?) AND scheduled_date <= ?
		ORDER BY scheduled_date`,
		models.ReminderPending, models.ReminderFailed, asOf)
	return es, err
}

// MarkReminderSent records a successful dispatch. The status condition makes
// overlapping sweeps idempotent: a second sweep matches zero rows.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE reminder_entries
		SET status = ?, sent_at = ?, failure_reason = '', updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		models.ReminderSent, at, time.Now().UTC(),
		id, models.ReminderPending, models.ReminderFailed)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// MarkReminderFailed records a failed dispatch with its reason.
func (r *Repository) MarkReminderFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE reminder_entries
		SET status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		models.ReminderFailed, reason, time.Now().UTC(),
		id, models.ReminderPending, models.ReminderFailed)
	return err
}

// CancelReminders cancels every pending or failed reminder for a record.
// Returns the number of entries cancelled; already cancelled or sent entries
// are untouched, so repeated sweeps do not double-cancel.
func (r *Repository) CancelReminders(ctx context.Context, recordID uuid.UUID) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE reminder_entries SET status = ?, updated_at = ?
		WHERE record_id = ? AND status IN (?, ?)`,
		models.ReminderCancelled, time.Now().UTC(),
		recordID, models.ReminderPending, models.ReminderFailed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListRemindersForRecord returns all reminder entries of a record.
func (r *Repository) ListRemindersForRecord(ctx context.Context, recordID uuid.UUID) ([]models.ReminderEntry, error) {
	var es []models.ReminderEntry
	err := r.q.SelectContext(ctx, &es, `
		SELECT * FROM reminder_entries WHERE record_id = ? ORDER BY scheduled_date`, recordID)
	return es, err
}

// CountLiveReminders counts non-cancelled entries for a record.
func (r *Repository) CountLiveReminders(ctx context.Context, recordID uuid.UUID) (int64, error) {
	var n int64
	err := r.q.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM reminder_entries
		WHERE record_id = ? AND status != ?`,
		recordID, models.ReminderCancelled)
	return n, err
}
