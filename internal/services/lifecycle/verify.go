// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/token"
)

// VerifyAction is the installer's answer to a verification request.
type VerifyAction string

const (
	Confirm VerifyAction = "confirm"
	Decline VerifyAction = "decline"
)

// Result reports the outcome of a token-gated transition.
type Result struct {
	RecordID   uuid.UUID         `json:"record_id"`
	RecordType models.RecordType `json:"record_type"`
	Status     string            `json:"status"`
}

// Verify resolves an installer verification token with confirm or decline.
// Confirming a warranty hands it to the customer for activation; confirming
// an inspection extends the owning warranty by one cycle. The token is
// consumed either way.
func (s *Service) Verify(ctx context.Context, plaintext string, action VerifyAction, reason string) (*Result, error) {
	if action != Confirm && action != Decline {
		return nil, fmt.Errorf("unknown verify action %q: %w", action, ErrValidation)
	}
	if action == Decline && reason == "" {
		return nil, fmt.Errorf("a reason is mandatory when declining: %w", ErrValidation)
	}

	tok, err := s.tokens.Validate(ctx, plaintext, models.TokenInstallerVerification)
	if err != nil {
		return nil, err
	}

	switch tok.RecordType {
	case models.RecordTypeWarranty:
		return s.verifyWarranty(ctx, tok, action, reason)
	case models.RecordTypeInspection:
		return s.verifyInspection(ctx, tok, action, reason)
	default:
		return nil, fmt.Errorf("token references unknown record type %q: %w", tok.RecordType, ErrValidation)
	}
}

func (s *Service) verifyWarranty(ctx context.Context, tok *models.VerificationToken, action VerifyAction, reason string) (*Result, error) {
	w, err := s.repo.GetWarranty(ctx, tok.RecordID)
	if err != nil {
		return nil, err
	}

	target := models.WarrantyPendingActivation
	actionType := models.ActionInstallerVerified
	if action == Decline {
		target = models.WarrantyRejected
		actionType = models.ActionInstallerDeclined
	}
	if !w.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("warranty in status %q cannot be verified: %w", w.Status, ErrValidation)
	}

	prior := w.Status
	var issued *token.Issued
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		txTokens := s.tokens.WithStore(r)
		if err := txTokens.Consume(ctx, tok.ID); err != nil {
			return err
		}

		w.Status = target
		if err := r.UpdateWarranty(ctx, w, prior); err != nil {
			return err
		}

		if action == Confirm {
			issued, err = txTokens.Issue(ctx, models.TokenCustomerActivation,
				w.ID, models.RecordTypeWarranty,
				token.Subject{CustomerContact: w.CustomerEmail})
			if err != nil {
				return err
			}
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			WarrantyID:         &w.ID,
			ActionType:         actionType,
			StatusBefore:       string(prior),
			StatusAfter:        string(w.Status),
			PerformedBy:        subjectName(tok),
			PerformedAt:        s.clk.Now(),
			Reason:             reason,
			SubmissionSnapshot: snapshot(w),
		})
	})
	if err != nil {
		return nil, err
	}

	if issued != nil {
		s.sendActivationLink(ctx, w, issued)
	}
	return &Result{RecordID: w.ID, RecordType: models.RecordTypeWarranty, Status: string(w.Status)}, nil
}

func (s *Service) verifyInspection(ctx context.Context, tok *models.VerificationToken, action VerifyAction, reason string) (*Result, error) {
	in, err := s.repo.GetInspection(ctx, tok.RecordID)
	if err != nil {
		return nil, err
	}

	target := models.InspectionVerified
	actionType := models.ActionInspectionVerified
	if action == Decline {
		target = models.InspectionRejected
		actionType = models.ActionInspectionRejected
	}
	if !in.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("inspection in status %q cannot be verified: %w", in.Status, ErrValidation)
	}

	now := s.clk.Now()
	prior := in.Status
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		if err := s.tokens.WithStore(r).Consume(ctx, tok.ID); err != nil {
			return err
		}

		in.Status = target
		if action == Confirm {
			in.VerifiedAt = &now
		}
		if err := r.UpdateInspection(ctx, in, prior); err != nil {
			return err
		}

		if err := r.AppendAudit(ctx, &models.AuditEntry{
			InspectionID:       &in.ID,
			ActionType:         actionType,
			StatusBefore:       string(prior),
			StatusAfter:        string(in.Status),
			PerformedBy:        subjectName(tok),
			PerformedAt:        now,
			Reason:             reason,
			SubmissionSnapshot: snapshot(in),
		}); err != nil {
			return err
		}

		if action == Confirm {
			return s.extendWarranty(ctx, r, in, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{RecordID: in.ID, RecordType: models.RecordTypeInspection, Status: string(in.Status)}, nil
}

// extendWarranty pushes the owning warranty one cycle forward after a
// verified inspection: new due date, fresh reminder schedule, cleared
// overdue flags. A warranty no longer active (expired, cancelled) is left
// alone; reinstatement is the only way back.
func (s *Service) extendWarranty(ctx context.Context, r *repository.Repository, in *models.InspectionRecord, now time.Time) error {
	w, err := r.GetWarranty(ctx, in.WarrantyID)
	if err != nil {
		return fmt.Errorf("load owning warranty: %w", err)
	}
	if w.Status != models.WarrantyActive {
		slog.Info("inspection verified for inactive warranty, skipping extension",
			"warranty_id", w.ID, "status", w.Status)
		return nil
	}

	prior := w.Status
	due := policy.DueDate(now, s.polCfg)
	grace := policy.GracePeriodEnd(due, s.polCfg)
	w.LastVerifiedAt = &now
	w.DueDate = &due
	w.GracePeriodEnd = &grace
	w.IsOverdue = false
	w.IsGraceExpired = false
	if err := r.UpdateWarranty(ctx, w, prior); err != nil {
		return err
	}

	if err := r.ReplaceReminders(ctx, w.ID, models.RecordTypeWarranty, policy.ReminderSchedule(due, s.polCfg)); err != nil {
		return fmt.Errorf("reschedule reminders: %w", err)
	}

	return r.AppendAudit(ctx, &models.AuditEntry{
		WarrantyID:         &w.ID,
		ActionType:         models.ActionReverified,
		StatusBefore:       string(prior),
		StatusAfter:        string(w.Status),
		PerformedBy:        "inspection:" + in.ID.String(),
		PerformedAt:        now,
		SubmissionSnapshot: snapshot(w),
	})
}

func subjectName(tok *models.VerificationToken) string {
	if tok.UserID != nil {
		return "installer:" + tok.UserID.String()
	}
	if tok.CustomerContact != "" {
		return "customer:" + tok.CustomerContact
	}
	return string(tok.Type)
}
