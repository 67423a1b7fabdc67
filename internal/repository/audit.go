// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
)

// AppendAudit appends one entry to the ledger. It assigns the next version
// number for the referenced record and moves the current-version flag, all in
// one transaction. Entries referencing both or neither record are rejected
// with ErrIntegrity before anything is written.
func (r *Repository) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if (e.WarrantyID == nil) == (e.InspectionID == nil) {
		return fmt.Errorf("audit entry must reference exactly one record: %w", ErrIntegrity)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.PerformedAt.IsZero() {
		e.PerformedAt = time.Now().UTC()
	}

	refColumn := "warranty_id"
	refID := e.WarrantyID
	if e.InspectionID != nil {
		refColumn = "inspection_id"
		refID = e.InspectionID
	}

	return r.WithTx(ctx, func(tx *Repository) error {
		var maxVersion int64
		err := tx.q.GetContext(ctx, &maxVersion,
			`SELECT COALESCE(MAX(version_number), 0) FROM audit_entries WHERE `+refColumn+` = ?`,
			refID)
		if err != nil {
			return fmt.Errorf("read audit version: %w", err)
		}
		e.VersionNumber = maxVersion + 1
		e.IsCurrentVersion = true

		_, err = tx.q.ExecContext(ctx,
			`UPDATE audit_entries SET is_current_version = 0 WHERE `+refColumn+` = ? AND is_current_version = 1`,
			refID)
		if err != nil {
			return fmt.Errorf("demote audit version: %w", err)
		}

		_, err = tx.q.ExecContext(ctx, `
			INSERT INTO audit_entries (
				id, warranty_id, inspection_id, action_type, status_before,
				status_after, performed_by, performed_at, reason,
				submission_snapshot, version_number, is_current_version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.WarrantyID, e.InspectionID, e.ActionType, e.StatusBefore,
			e.StatusAfter, e.PerformedBy, e.PerformedAt, e.Reason,
			e.SubmissionSnapshot, e.VersionNumber, e.IsCurrentVersion)
		if err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
}

// ListAuditEntries returns the full ledger for a record in version order.
func (r *Repository) ListAuditEntries(ctx context.Context, recordID uuid.UUID, recordType models.RecordType) ([]models.AuditEntry, error) {
	column, err := auditColumn(recordType)
	if err != nil {
		return nil, err
	}

	var es []models.AuditEntry
	err = r.q.SelectContext(ctx, &es,
		`SELECT * FROM audit_entries WHERE `+column+` = ? ORDER BY version_number`, recordID)
	return es, err
}

// CurrentAuditEntry returns the entry carrying the current-version flag.
func (r *Repository) CurrentAuditEntry(ctx context.Context, recordID uuid.UUID, recordType models.RecordType) (*models.AuditEntry, error) {
	column, err := auditColumn(recordType)
	if err != nil {
		return nil, err
	}

	var e models.AuditEntry
	err = r.q.GetContext(ctx, &e,
		`SELECT * FROM audit_entries WHERE `+column+` = ? AND is_current_version = 1`, recordID)
	if err != nil {
		return nil, wrapGet(err)
	}
	return &e, nil
}

// ArchiveResolvedBefore moves superseded ledger entries older than the cutoff
// into the archive table. Current-version entries always stay in the hot
// table so the latest snapshot per record remains queryable.
func (r *Repository) ArchiveResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var moved int64
	err := r.WithTx(ctx, func(tx *Repository) error {
		res, err := tx.q.ExecContext(ctx, `
			INSERT INTO audit_entries_archive
			SELECT * FROM audit_entries
			WHERE is_current_version = 0 AND performed_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("archive audit entries: %w", err)
		}
		moved, err = res.RowsAffected()
		if err != nil {
			return err
		}

		_, err = tx.q.ExecContext(ctx, `
			DELETE FROM audit_entries
			WHERE is_current_version = 0 AND performed_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("prune archived audit entries: %w", err)
		}
		return nil
	})
	return moved, err
}

func auditColumn(recordType models.RecordType) (string, error) {
	switch recordType {
	case models.RecordTypeWarranty:
		return "warranty_id", nil
	case models.RecordTypeInspection:
		return "inspection_id", nil
	default:
		return "", fmt.Errorf("unknown record type %q: %w", recordType, ErrIntegrity)
	}
}
