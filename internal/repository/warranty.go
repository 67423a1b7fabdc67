// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
)

// CreateWarranty inserts a new warranty record.
func (r *Repository) CreateWarranty(ctx context.Context, w *models.WarrantyRecord) error {
	now := time.Now().UTC()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = models.WarrantyDraft
	}
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO warranties (
			id, vehicle_vin, customer_name, customer_email, customer_phone,
			installer_id, installer_email, status, is_active, is_overdue,
			is_grace_expired, reminders_sent, installed_at, activated_at,
			last_verified_at, due_date, grace_period_end, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.VehicleVIN, w.CustomerName, w.CustomerEmail, w.CustomerPhone,
		w.InstallerID, w.InstallerEmail, w.Status, w.IsActive, w.IsOverdue,
		w.IsGraceExpired, w.RemindersSent, w.InstalledAt, w.ActivatedAt,
		w.LastVerifiedAt, w.DueDate, w.GracePeriodEnd, w.CreatedAt, w.UpdatedAt)
	return err
}

// GetWarranty retrieves a warranty by ID.
func (r *Repository) GetWarranty(ctx context.Context, id uuid.UUID) (*models.WarrantyRecord, error) {
	var w models.WarrantyRecord
	err := r.q.GetContext(ctx, &w, `SELECT * FROM warranties WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet(err)
	}
	return &w, nil
}

// UpdateWarranty writes the mutable fields of w conditioned on the status the
// caller read (optimistic concurrency). Returns ErrConflict when another
// transition won the race.
func (r *Repository) UpdateWarranty(ctx context.Context, w *models.WarrantyRecord, priorStatus models.WarrantyStatus) error {
	w.UpdatedAt = time.Now().UTC()

	res, err := r.q.ExecContext(ctx, `
		UPDATE warranties SET
			customer_name = ?, customer_email = ?, customer_phone = ?,
			installer_email = ?, status = ?, is_active = ?, is_overdue = ?,
			is_grace_expired = ?, reminders_sent = ?, installed_at = ?,
			activated_at = ?, last_verified_at = ?, due_date = ?,
			grace_period_end = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		w.CustomerName, w.CustomerEmail, w.CustomerPhone,
		w.InstallerEmail, w.Status, w.IsActive, w.IsOverdue,
		w.IsGraceExpired, w.RemindersSent, w.InstalledAt,
		w.ActivatedAt, w.LastVerifiedAt, w.DueDate,
		w.GracePeriodEnd, w.UpdatedAt,
		w.ID, priorStatus)
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

// ExpireLapsedWarranty atomically moves an active warranty past its grace
// period into expired. The grace_period_end condition makes a completed
// re-verification win over an overlapping grace sweep: re-verifying moves
// the boundary forward, so the sweep's update matches zero rows.
func (r *Repository) ExpireLapsedWarranty(ctx context.Context, id uuid.UUID, asOf time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE warranties SET
			status = ?, is_active = 0, is_grace_expired = 1, updated_at = ?
		WHERE id = ? AND status = ? AND grace_period_end IS NOT NULL AND grace_period_end <= ?`,
		models.WarrantyExpired, time.Now().UTC(), id, models.WarrantyActive, asOf)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListLapsedWarranties returns active warranties whose grace period ended on
// or before asOf.
func (r *Repository) ListLapsedWarranties(ctx context.Context, asOf time.Time) ([]models.WarrantyRecord, error) {
	var ws []models.WarrantyRecord
	err := r.q.SelectContext(ctx, &ws, `
		SELECT * FROM warranties
		WHERE status = ? AND grace_period_end IS NOT NULL AND grace_period_end <= ?
		ORDER BY grace_period_end`,
		models.WarrantyActive, asOf)
	return ws, err
}

// MarkWarrantiesOverdue flags active warranties past their due date. Running
// it repeatedly is a no-op for already flagged rows.
func (r *Repository) MarkWarrantiesOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE warranties SET is_overdue = 1, updated_at = ?
		WHERE status = ? AND is_overdue = 0 AND due_date IS NOT NULL AND due_date < ?`,
		time.Now().UTC(), models.WarrantyActive, asOf)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementWarrantyReminders bumps the sent-reminder counter without
// touching the status row version.
func (r *Repository) IncrementWarrantyReminders(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE warranties SET reminders_sent = reminders_sent + 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

// ListWarrantiesByStatus returns all warranties in the given status.
func (r *Repository) ListWarrantiesByStatus(ctx context.Context, status models.WarrantyStatus) ([]models.WarrantyRecord, error) {
	var ws []models.WarrantyRecord
	err := r.q.SelectContext(ctx, &ws, `
		SELECT * FROM warranties WHERE status = ? ORDER BY created_at`, status)
	return ws, err
}
