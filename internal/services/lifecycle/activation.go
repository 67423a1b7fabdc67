// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
)

// AcceptActivation resolves a customer activation token. The customer must
// accept the terms; declining leaves the warranty untouched and the token
// unconsumed so a changed mind can still activate later.
func (s *Service) AcceptActivation(ctx context.Context, plaintext string, accepted bool) (*models.WarrantyRecord, error) {
	tok, err := s.tokens.Validate(ctx, plaintext, models.TokenCustomerActivation)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, fmt.Errorf("warranty terms must be accepted to activate: %w", ErrValidation)
	}

	w, err := s.repo.GetWarranty(ctx, tok.RecordID)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(models.WarrantyActive) {
		return nil, fmt.Errorf("warranty in status %q cannot be activated: %w", w.Status, ErrValidation)
	}

	prior := w.Status
	now := s.clk.Now()
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		if err := s.tokens.WithStore(r).Consume(ctx, tok.ID); err != nil {
			return err
		}

		s.activate(w, now)
		if err := r.UpdateWarranty(ctx, w, prior); err != nil {
			return err
		}

		if err := r.ReplaceReminders(ctx, w.ID, models.RecordTypeWarranty,
			policy.ReminderSchedule(*w.DueDate, s.polCfg)); err != nil {
			return fmt.Errorf("schedule reminders: %w", err)
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			WarrantyID:         &w.ID,
			ActionType:         models.ActionCustomerActivated,
			StatusBefore:       string(prior),
			StatusAfter:        string(w.Status),
			PerformedBy:        subjectName(tok),
			PerformedAt:        now,
			SubmissionSnapshot: snapshot(w),
		})
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}

// ExpireLapsed moves one active warranty past its grace period to expired,
// cancels its outstanding reminders and writes a single GRACE_EXPIRED audit
// entry. Idempotent: a warranty already expired, or cured by a re-verification
// that raced this sweep, matches zero rows and nothing happens.
func (s *Service) ExpireLapsed(ctx context.Context, warrantyID uuid.UUID, asOf time.Time) (bool, error) {
	var expired bool
	err := s.repo.WithTx(ctx, func(r *repository.Repository) error {
		ok, err := r.ExpireLapsedWarranty(ctx, warrantyID, asOf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		expired = true

		if _, err := r.CancelReminders(ctx, warrantyID); err != nil {
			return fmt.Errorf("cancel reminders: %w", err)
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			WarrantyID:   &warrantyID,
			ActionType:   models.ActionGraceExpired,
			StatusBefore: string(models.WarrantyActive),
			StatusAfter:  string(models.WarrantyExpired),
			PerformedBy:  "scheduler",
			PerformedAt:  s.clk.Now(),
		})
	})
	return expired, err
}
