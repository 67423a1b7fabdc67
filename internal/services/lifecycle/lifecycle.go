// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package lifecycle owns warranty and inspection status. Every transition
// runs guard -> mutate -> audit inside one store transaction; notification
// delivery stays outside and never rolls a transition back.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/i18n"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/notify"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/token"
)

// ErrValidation marks guard failures: missing mandatory fields and illegal
// state transitions. Nothing is written when it is returned.
var ErrValidation = errors.New("validation error")

// SubmissionChecker gates submission on completeness of the uploaded
// evidence (photos, documents). Implemented by the document service.
type SubmissionChecker interface {
	IsSubmissionComplete(ctx context.Context, recordID uuid.UUID, recordType models.RecordType) (bool, error)
}

// AcceptAllChecker approves every submission. Used when evidence completeness
// is enforced upstream by the document service.
type AcceptAllChecker struct{}

// IsSubmissionComplete always reports complete.
func (AcceptAllChecker) IsSubmissionComplete(context.Context, uuid.UUID, models.RecordType) (bool, error) {
	return true, nil
}

// Service is the lifecycle state machine.
type Service struct {
	repo    *repository.Repository
	tokens  *token.Service
	gateway notify.Gateway
	checker SubmissionChecker
	polCfg  policy.Config
	clk     clock.Clock
	baseURL string
}

// NewService creates the lifecycle service.
func NewService(repo *repository.Repository, tokens *token.Service, gateway notify.Gateway, checker SubmissionChecker, polCfg policy.Config, clk clock.Clock, baseURL string) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		gateway: gateway,
		checker: checker,
		polCfg:  polCfg,
		clk:     clk,
		baseURL: baseURL,
	}
}

// SubmitWarranty moves a draft or rejected warranty to submitted, issues the
// installer verification token and emails the verification link.
func (s *Service) SubmitWarranty(ctx context.Context, warrantyID uuid.UUID, actor string) (*models.WarrantyRecord, error) {
	w, err := s.repo.GetWarranty(ctx, warrantyID)
	if err != nil {
		return nil, err
	}

	if !w.Status.CanTransitionTo(models.WarrantySubmitted) {
		return nil, fmt.Errorf("warranty in status %q cannot be submitted: %w", w.Status, ErrValidation)
	}
	if w.VehicleVIN == "" || w.InstallerID == uuid.Nil || w.InstallerEmail == "" {
		return nil, fmt.Errorf("vehicle VIN and installer assignment are mandatory: %w", ErrValidation)
	}

	complete, err := s.checker.IsSubmissionComplete(ctx, w.ID, models.RecordTypeWarranty)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if !complete {
		return nil, fmt.Errorf("submission is missing required photos or documents: %w", ErrValidation)
	}

	prior := w.Status
	var issued *token.Issued
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		w.Status = models.WarrantySubmitted
		if err := r.UpdateWarranty(ctx, w, prior); err != nil {
			return err
		}

		issued, err = s.tokens.WithStore(r).Issue(ctx, models.TokenInstallerVerification,
			w.ID, models.RecordTypeWarranty, token.Subject{UserID: &w.InstallerID})
		if err != nil {
			return err
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			WarrantyID:         &w.ID,
			ActionType:         models.ActionSubmitted,
			StatusBefore:       string(prior),
			StatusAfter:        string(w.Status),
			PerformedBy:        actor,
			PerformedAt:        s.clk.Now(),
			SubmissionSnapshot: snapshot(w),
		})
	})
	if err != nil {
		return nil, err
	}

	s.sendInstallerLink(ctx, w, issued)
	return w, nil
}

// SubmitInspection moves a draft or rejected inspection to submitted and
// issues the verification token for the verifying dealer.
func (s *Service) SubmitInspection(ctx context.Context, inspectionID uuid.UUID, actor string) (*models.InspectionRecord, error) {
	in, err := s.repo.GetInspection(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	if !in.Status.CanTransitionTo(models.InspectionSubmitted) {
		return nil, fmt.Errorf("inspection in status %q cannot be submitted: %w", in.Status, ErrValidation)
	}
	if in.InspectorID == uuid.Nil {
		return nil, fmt.Errorf("inspector assignment is mandatory: %w", ErrValidation)
	}

	complete, err := s.checker.IsSubmissionComplete(ctx, in.ID, models.RecordTypeInspection)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if !complete {
		return nil, fmt.Errorf("submission is missing required photos or documents: %w", ErrValidation)
	}

	w, err := s.repo.GetWarranty(ctx, in.WarrantyID)
	if err != nil {
		return nil, fmt.Errorf("load owning warranty: %w", err)
	}

	prior := in.Status
	now := s.clk.Now()
	var issued *token.Issued
	err = s.repo.WithTx(ctx, func(r *repository.Repository) error {
		in.Status = models.InspectionSubmitted
		in.SubmittedAt = &now
		if err := r.UpdateInspection(ctx, in, prior); err != nil {
			return err
		}

		issued, err = s.tokens.WithStore(r).Issue(ctx, models.TokenInstallerVerification,
			in.ID, models.RecordTypeInspection, token.Subject{UserID: &in.InspectorID})
		if err != nil {
			return err
		}

		return r.AppendAudit(ctx, &models.AuditEntry{
			InspectionID:       &in.ID,
			ActionType:         models.ActionSubmitted,
			StatusBefore:       string(prior),
			StatusAfter:        string(in.Status),
			PerformedBy:        actor,
			PerformedAt:        now,
			SubmissionSnapshot: snapshot(in),
		})
	})
	if err != nil {
		return nil, err
	}

	s.sendInstallerLink(ctx, w, issued)
	return in, nil
}

// sendInstallerLink emails the verification link. Best effort: a transport
// failure is logged, the transition stands, and the scheduler's reminder
// machinery covers the gap.
func (s *Service) sendInstallerLink(ctx context.Context, w *models.WarrantyRecord, issued *token.Issued) {
	data := map[string]any{
		"VIN":       w.VehicleVIN,
		"VerifyURL": fmt.Sprintf("%s/verify/%s", s.baseURL, issued.Plaintext),
		"ExpiresAt": issued.Token.ExpiresAt.Format("2006-01-02"),
	}
	err := s.gateway.SendEmail(ctx, w.InstallerEmail,
		i18n.T("installer_verification_subject"),
		"",
		i18n.TData("installer_verification_body", data))
	if err != nil {
		slog.Warn("installer verification email failed",
			"warranty_id", w.ID, "error", err)
	}
}

// sendActivationLink emails the customer activation link, best effort.
func (s *Service) sendActivationLink(ctx context.Context, w *models.WarrantyRecord, issued *token.Issued) {
	data := map[string]any{
		"CustomerName": w.CustomerName,
		"VIN":          w.VehicleVIN,
		"ActivateURL":  fmt.Sprintf("%s/activate/%s", s.baseURL, issued.Plaintext),
		"ExpiresAt":    issued.Token.ExpiresAt.Format("2006-01-02"),
	}
	err := s.gateway.SendEmail(ctx, w.CustomerEmail,
		i18n.T("customer_activation_subject"),
		"",
		i18n.TData("customer_activation_body", data))
	if err != nil {
		slog.Warn("customer activation email failed",
			"warranty_id", w.ID, "error", err)
	}
}

// activate applies the activation date math to w in place.
func (s *Service) activate(w *models.WarrantyRecord, now time.Time) {
	due := policy.DueDate(now, s.polCfg)
	graceEnd := policy.GracePeriodEnd(due, s.polCfg)
	w.Status = models.WarrantyActive
	w.IsActive = true
	w.IsOverdue = false
	w.IsGraceExpired = false
	w.ActivatedAt = &now
	w.LastVerifiedAt = &now
	w.DueDate = &due
	w.GracePeriodEnd = &graceEnd
}

func snapshot(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("snapshot marshal failed", "error", err)
		return nil
	}
	return b
}
