// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
)

// CreateInspection inserts a new inspection record.
func (r *Repository) CreateInspection(ctx context.Context, in *models.InspectionRecord) error {
	now := time.Now().UTC()
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.Status == "" {
		in.Status = models.InspectionDraft
	}
	in.CreatedAt = now
	in.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inspections (
			id, warranty_id, inspector_id, status, notes,
			submitted_at, verified_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.WarrantyID, in.InspectorID, in.Status, in.Notes,
		in.SubmittedAt, in.VerifiedAt, in.CreatedAt, in.UpdatedAt)
	return err
}

// GetInspection retrieves an inspection by ID.
func (r *Repository) GetInspection(ctx context.Context, id uuid.UUID) (*models.InspectionRecord, error) {
	var in models.InspectionRecord
	err := r.q.GetContext(ctx, &in, `SELECT * FROM inspections WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet(err)
	}
	return &in, nil
}

// UpdateInspection writes the mutable fields conditioned on the status the
// caller read. Returns ErrConflict when another transition won the race.
func (r *Repository) UpdateInspection(ctx context.Context, in *models.InspectionRecord, priorStatus models.InspectionStatus) error {
	in.UpdatedAt = time.Now().UTC()

	res, err := r.q.ExecContext(ctx, `
		UPDATE inspections SET
			status = ?, notes = ?, submitted_at = ?, verified_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		in.Status, in.Notes, in.SubmittedAt, in.VerifiedAt, in.UpdatedAt,
		in.ID, priorStatus)
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

// ListInspectionsForWarranty returns all inspections of a warranty, newest first.
func (r *Repository) ListInspectionsForWarranty(ctx context.Context, warrantyID uuid.UUID) ([]models.InspectionRecord, error) {
	var ins []models.InspectionRecord
	err := r.q.SelectContext(ctx, &ins, `
		SELECT * FROM inspections WHERE warranty_id = ? ORDER BY created_at DESC`, warrantyID)
	return ins, err
}
