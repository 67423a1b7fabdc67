// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reinstate restores expired warranties to active coverage by
// administrative decision, outside the normal verification flow.
package reinstate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
)

// Eligibility is the result of a reinstatement pre-check.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	// ReverifiedSinceLapse reports whether an inspection was verified after
	// the warranty lapsed. Informational only; the admin decides.
	ReverifiedSinceLapse bool `json:"reverified_since_lapse"`
}

// Service performs reinstatements.
type Service struct {
	repo   *repository.Repository
	polCfg policy.Config
	clk    clock.Clock
}

// NewService creates the reinstatement service.
func NewService(repo *repository.Repository, polCfg policy.Config, clk clock.Clock) *Service {
	return &Service{repo: repo, polCfg: polCfg, clk: clk}
}

// CheckEligibility reports whether the warranty can be reinstated. Only
// expired warranties qualify.
func (s *Service) CheckEligibility(ctx context.Context, warrantyID uuid.UUID) (*Eligibility, error) {
	w, err := s.repo.GetWarranty(ctx, warrantyID)
	if err != nil {
		return nil, err
	}

	if w.Status != models.WarrantyExpired {
		return &Eligibility{Eligible: false, Reason: "not lapsed"}, nil
	}

	reverified, err := s.reverifiedSinceLapse(ctx, w)
	if err != nil {
		return nil, err
	}
	return &Eligibility{Eligible: true, ReverifiedSinceLapse: reverified}, nil
}

// Reinstate moves an expired warranty back to active with dates recomputed
// from today and a fresh reminder schedule. The audit entry is tagged
// REINSTATED so it never reads as a normal activation.
func (s *Service) Reinstate(ctx context.Context, warrantyID uuid.UUID, admin, reason string) (*models.WarrantyRecord, error) {
	if reason == "" {
		return nil, fmt.Errorf("a reason is mandatory for reinstatement: %w", lifecycle.ErrValidation)
	}
	if admin == "" {
		return nil, fmt.Errorf("an administrative actor is required: %w", lifecycle.ErrValidation)
	}

	w, err := s.repo.GetWarranty(ctx, warrantyID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WarrantyExpired {
		return nil, fmt.Errorf("only expired warranties can be reinstated, current status %q: %w", w.Status, lifecycle.ErrValidation)
	}

	prior := w.Status
	now := s.clk.Now()
	due := policy.DueDate(now, s.polCfg)
	grace := policy.GracePeriodEnd(due, s.polCfg)

	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		w.Status = models.WarrantyActive
		w.IsActive = true
		w.IsOverdue = false
		w.IsGraceExpired = false
		w.LastVerifiedAt = &now
		w.DueDate = &due
		w.GracePeriodEnd = &grace
		if err := r.UpdateWarranty(ctx, w, prior); err != nil {
			return err
		}

		if err := r.ReplaceReminders(ctx, w.ID, models.RecordTypeWarranty,
			policy.ReminderSchedule(due, s.polCfg)); err != nil {
			return fmt.Errorf("schedule reminders: %w", err)
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			WarrantyID:   &w.ID,
			ActionType:   models.ActionReinstated,
			StatusBefore: string(prior),
			StatusAfter:  string(w.Status),
			PerformedBy:  admin,
			PerformedAt:  now,
			Reason:       reason,
		})
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}

// reverifiedSinceLapse looks for an inspection verified after the warranty
// fell out of coverage.
func (s *Service) reverifiedSinceLapse(ctx context.Context, w *models.WarrantyRecord) (bool, error) {
	if w.GracePeriodEnd == nil {
		return false, nil
	}

	inspections, err := s.repo.ListInspectionsForWarranty(ctx, w.ID)
	if err != nil {
		return false, err
	}
	for _, in := range inspections {
		if in.Status == models.InspectionVerified && in.VerifiedAt != nil && in.VerifiedAt.After(*w.GracePeriodEnd) {
			return true, nil
		}
	}
	return false, nil
}
