// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
)

// AdminAction is an administrative override target.
type AdminAction string

const (
	AdminActivate AdminAction = "activate"
	AdminVerify   AdminAction = "verify" // inspections only
	AdminReject   AdminAction = "reject"
	AdminExpire   AdminAction = "expire"
	AdminCancel   AdminAction = "cancel"
)

// AdminOverride applies a transition without token validation. A non-empty
// reason is mandatory; the audit entry carries the ADMIN_OVERRIDE action type
// so overridden transitions stay distinguishable from the normal flow.
func (s *Service) AdminOverride(ctx context.Context, recordID uuid.UUID, recordType models.RecordType, action AdminAction, admin, reason string) (*Result, error) {
	if reason == "" {
		return nil, fmt.Errorf("a reason is mandatory for admin overrides: %w", ErrValidation)
	}
	if admin == "" {
		return nil, fmt.Errorf("an administrative actor is required: %w", ErrValidation)
	}

	switch recordType {
	case models.RecordTypeWarranty:
		return s.overrideWarranty(ctx, recordID, action, admin, reason)
	case models.RecordTypeInspection:
		return s.overrideInspection(ctx, recordID, action, admin, reason)
	default:
		return nil, fmt.Errorf("unknown record type %q: %w", recordType, ErrValidation)
	}
}

func (s *Service) overrideWarranty(ctx context.Context, id uuid.UUID, action AdminAction, admin, reason string) (*Result, error) {
	var target models.WarrantyStatus
	switch action {
	case AdminActivate:
		target = models.WarrantyActive
	case AdminReject:
		target = models.WarrantyRejected
	case AdminExpire:
		target = models.WarrantyExpired
	case AdminCancel:
		target = models.WarrantyCancelled
	default:
		return nil, fmt.Errorf("action %q does not apply to warranties: %w", action, ErrValidation)
	}

	w, err := s.repo.GetWarranty(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("warranty in status %q cannot move to %q: %w", w.Status, target, ErrValidation)
	}

	prior := w.Status
	now := s.clk.Now()
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		switch target {
		case models.WarrantyActive:
			s.activate(w, now)
		case models.WarrantyExpired:
			w.Status = target
			w.IsActive = false
			w.IsGraceExpired = true
		default:
			w.Status = target
			w.IsActive = false
		}
		if err := r.UpdateWarranty(ctx, w, prior); err != nil {
			return err
		}

		switch target {
		case models.WarrantyActive:
			if err := r.ReplaceReminders(ctx, w.ID, models.RecordTypeWarranty,
				policy.ReminderSchedule(*w.DueDate, s.polCfg)); err != nil {
				return fmt.Errorf("schedule reminders: %w", err)
			}
		case models.WarrantyExpired, models.WarrantyCancelled:
			if _, err := r.CancelReminders(ctx, w.ID); err != nil {
				return fmt.Errorf("cancel reminders: %w", err)
			}
		}

		if target == models.WarrantyCancelled {
			// Nothing gated on this record may ever be redeemed.
			for _, tt := range []models.TokenType{models.TokenInstallerVerification, models.TokenCustomerActivation} {
				if _, err := r.InvalidatePriorTokens(ctx, w.ID, tt, now); err != nil {
					return fmt.Errorf("invalidate tokens: %w", err)
				}
			}
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			WarrantyID:         &w.ID,
			ActionType:         models.ActionAdminOverride,
			StatusBefore:       string(prior),
			StatusAfter:        string(w.Status),
			PerformedBy:        admin,
			PerformedAt:        now,
			Reason:             reason,
			SubmissionSnapshot: snapshot(w),
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{RecordID: w.ID, RecordType: models.RecordTypeWarranty, Status: string(w.Status)}, nil
}

func (s *Service) overrideInspection(ctx context.Context, id uuid.UUID, action AdminAction, admin, reason string) (*Result, error) {
	var target models.InspectionStatus
	switch action {
	case AdminVerify:
		target = models.InspectionVerified
	case AdminReject:
		target = models.InspectionRejected
	default:
		return nil, fmt.Errorf("action %q does not apply to inspections: %w", action, ErrValidation)
	}

	in, err := s.repo.GetInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !in.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("inspection in status %q cannot move to %q: %w", in.Status, target, ErrValidation)
	}

	prior := in.Status
	now := s.clk.Now()
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		in.Status = target
		if target == models.InspectionVerified {
			in.VerifiedAt = &now
		}
		if err := r.UpdateInspection(ctx, in, prior); err != nil {
			return err
		}

		if err := r.AppendAudit(ctx, &models.AuditEntry{
			InspectionID:       &in.ID,
			ActionType:         models.ActionAdminOverride,
			StatusBefore:       string(prior),
			StatusAfter:        string(in.Status),
			PerformedBy:        admin,
			PerformedAt:        now,
			Reason:             reason,
			SubmissionSnapshot: snapshot(in),
		}); err != nil {
			return err
		}

		if target == models.InspectionVerified {
			return s.extendWarranty(ctx, r, in, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{RecordID: in.ID, RecordType: models.RecordTypeInspection, Status: string(in.Status)}, nil
}
