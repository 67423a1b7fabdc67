// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/config"
	"github.com/coatsure/warrantyd/internal/i18n"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/notify"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
	"github.com/coatsure/warrantyd/internal/services/token"
)

// auditRetention is how long superseded ledger entries stay in the hot table.
const auditRetention = 2 * 365 * 24 * time.Hour

// Sweeper implements the three periodic sweeps. Every sweep re-evaluates
// current store state, so re-running one is always safe.
type Sweeper struct {
	repo    *repository.Repository
	machine *lifecycle.Service
	tokens  *token.Service
	gateway notify.Gateway
	cfg     config.SchedulerConfig
	polCfg  policy.Config
	clk     clock.Clock
	baseURL string
}

// NewSweeper creates the sweep implementation.
func NewSweeper(repo *repository.Repository, machine *lifecycle.Service, tokens *token.Service, gateway notify.Gateway, cfg config.SchedulerConfig, polCfg policy.Config, clk clock.Clock, baseURL string) *Sweeper {
	return &Sweeper{
		repo:    repo,
		machine: machine,
		tokens:  tokens,
		gateway: gateway,
		cfg:     cfg,
		polCfg:  polCfg,
		clk:     clk,
		baseURL: baseURL,
	}
}

// DispatchReminders sends every due inspection reminder and every eligible
// customer-activation reminder. Failures are recorded on the entry and
// retried on the next sweep; each send is separated by a fixed delay so the
// gateway is never flooded.
func (s *Sweeper) DispatchReminders(ctx context.Context) error {
	now := s.clk.Now()

	entries, err := s.repo.ListDueReminders(ctx, now)
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if err := s.dispatchOne(ctx, &entry, now); err != nil {
			errs = append(errs, err)
		}
		if err := sleepCtx(ctx, s.cfg.InterSendDelay); err != nil {
			return err
		}
	}

	if err := s.dispatchActivationReminders(ctx, now); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Sweeper) dispatchOne(ctx context.Context, entry *models.ReminderEntry, now time.Time) error {
	w, err := s.repo.GetWarranty(ctx, entry.RecordID)
	if errors.Is(err, repository.ErrNotFound) {
		_, err := s.repo.CancelReminders(ctx, entry.RecordID)
		return err
	}
	if err != nil {
		return err
	}

	// Reminders only make sense for live coverage. A record that moved on
	// gets its whole schedule cancelled.
	if w.Status != models.WarrantyActive {
		_, err := s.repo.CancelReminders(ctx, w.ID)
		return err
	}

	subject, body := renderReminder(entry.Type, w, s.polCfg)
	if sendErr := s.gateway.SendEmail(ctx, w.CustomerEmail, subject, "", body); sendErr != nil {
		slog.Warn("reminder email failed",
			"warranty_id", w.ID, "reminder", entry.Type, "error", sendErr)
		return s.repo.MarkReminderFailed(ctx, entry.ID, sendErr.Error())
	}

	// The due-date reminder also goes out by SMS when a phone is on file.
	if entry.Type == models.ReminderDueDate && w.CustomerPhone != "" {
		smsBody := i18n.TData("reminder_sms", map[string]any{
			"VIN":     w.VehicleVIN,
			"DueDate": w.DueDate.Format("2006-01-02"),
		})
		if smsErr := s.gateway.SendSMS(ctx, w.CustomerPhone, smsBody); smsErr != nil && !errors.Is(smsErr, notify.ErrSMSDisabled) {
			slog.Warn("reminder sms failed", "warranty_id", w.ID, "error", smsErr)
		}
	}

	sent, err := s.repo.MarkReminderSent(ctx, entry.ID, now)
	if err != nil || !sent {
		return err
	}

	if err := s.repo.IncrementWarrantyReminders(ctx, w.ID); err != nil {
		return err
	}

	return s.repo.AppendAudit(ctx, &models.AuditEntry{
		WarrantyID:   &w.ID,
		ActionType:   models.ActionReminderSent,
		StatusBefore: string(w.Status),
		StatusAfter:  string(w.Status),
		PerformedBy:  "scheduler",
		PerformedAt:  now,
		Reason:       string(entry.Type),
	})
}

// dispatchActivationReminders nudges customers who have not activated yet.
// The cadence (initial delay, cooldown, cap) is read from the token's own
// counters, so a paused or restarted scheduler neither skips nor duplicates.
// Each reminder ships a freshly issued token because the plaintext of the
// original link is never stored.
func (s *Sweeper) dispatchActivationReminders(ctx context.Context, now time.Time) error {
	toks, err := s.repo.ListActivationTokensDue(ctx, now,
		s.cfg.ActivationMaxReminders, s.cfg.ActivationInitialDelay, s.cfg.ActivationCooldown)
	if err != nil {
		return fmt.Errorf("list activation tokens: %w", err)
	}

	var errs []error
	for _, tok := range toks {
		if err := s.remindActivation(ctx, &tok, now); err != nil {
			errs = append(errs, err)
		}
		if err := sleepCtx(ctx, s.cfg.InterSendDelay); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func (s *Sweeper) remindActivation(ctx context.Context, tok *models.VerificationToken, now time.Time) error {
	w, err := s.repo.GetWarranty(ctx, tok.RecordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if w.Status != models.WarrantyPendingActivation {
		return nil
	}

	issued, err := s.tokens.Reissue(ctx, tok)
	if err != nil {
		return fmt.Errorf("reissue activation token: %w", err)
	}

	data := map[string]any{
		"CustomerName": w.CustomerName,
		"VIN":          w.VehicleVIN,
		"ActivateURL":  fmt.Sprintf("%s/activate/%s", s.baseURL, issued.Plaintext),
	}
	sendErr := s.gateway.SendEmail(ctx, w.CustomerEmail,
		i18n.T("activation_reminder_subject"), "",
		i18n.TData("activation_reminder_body", data))
	if sendErr == nil && w.CustomerPhone != "" {
		smsErr := s.gateway.SendSMS(ctx, w.CustomerPhone,
			i18n.TData("activation_reminder_sms", data))
		if smsErr != nil && !errors.Is(smsErr, notify.ErrSMSDisabled) {
			slog.Warn("activation reminder sms failed", "warranty_id", w.ID, "error", smsErr)
		}
	}
	if sendErr != nil {
		// Cooldown stays untouched, so the next sweep retries.
		slog.Warn("activation reminder email failed", "warranty_id", w.ID, "error", sendErr)
		return sendErr
	}

	if err := s.repo.RecordTokenReminder(ctx, issued.Token.ID, now); err != nil {
		return err
	}

	return s.repo.AppendAudit(ctx, &models.AuditEntry{
		WarrantyID:   &w.ID,
		ActionType:   models.ActionReminderSent,
		StatusBefore: string(w.Status),
		StatusAfter:  string(w.Status),
		PerformedBy:  "scheduler",
		PerformedAt:  now,
		Reason:       "customer_activation",
	})
}

// SweepGrace expires every active warranty whose grace period has ended.
// A re-verification completing in the same window wins: it moves the grace
// boundary forward and the expiry update matches nothing.
func (s *Sweeper) SweepGrace(ctx context.Context) error {
	now := s.clk.Now()

	lapsed, err := s.repo.ListLapsedWarranties(ctx, now)
	if err != nil {
		return fmt.Errorf("list lapsed warranties: %w", err)
	}

	var errs []error
	for _, w := range lapsed {
		expired, err := s.machine.ExpireLapsed(ctx, w.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire warranty %s: %w", w.ID, err))
			continue
		}
		if expired {
			slog.Info("warranty expired after grace period",
				"warranty_id", w.ID, "grace_period_end", w.GracePeriodEnd)
		}
	}
	return errors.Join(errs...)
}

// Reconcile repairs drift: flags overdue records, restores missing reminder
// schedules, clears out expired tokens and archives old ledger entries.
func (s *Sweeper) Reconcile(ctx context.Context) error {
	now := s.clk.Now()

	flagged, err := s.repo.MarkWarrantiesOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("flag overdue warranties: %w", err)
	}
	if flagged > 0 {
		slog.Info("warranties flagged overdue", "count", flagged)
	}

	active, err := s.repo.ListWarrantiesByStatus(ctx, models.WarrantyActive)
	if err != nil {
		return fmt.Errorf("list active warranties: %w", err)
	}
	for _, w := range active {
		if w.DueDate == nil {
			continue
		}
		n, err := s.repo.CountLiveReminders(ctx, w.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := s.repo.ReplaceReminders(ctx, w.ID, models.RecordTypeWarranty,
				policy.ReminderSchedule(*w.DueDate, s.polCfg)); err != nil {
				return fmt.Errorf("restore reminder schedule for %s: %w", w.ID, err)
			}
			slog.Info("restored missing reminder schedule", "warranty_id", w.ID)
		}
	}

	removed, err := s.tokens.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired tokens: %w", err)
	}
	if removed > 0 {
		slog.Debug("expired tokens removed", "count", removed)
	}

	archived, err := s.repo.ArchiveResolvedBefore(ctx, now.Add(-auditRetention))
	if err != nil {
		return fmt.Errorf("archive audit entries: %w", err)
	}
	if archived > 0 {
		slog.Debug("audit entries archived", "count", archived)
	}

	return nil
}

func renderReminder(rt models.ReminderType, w *models.WarrantyRecord, polCfg policy.Config) (subject, body string) {
	data := map[string]any{
		"CustomerName": w.CustomerName,
		"VIN":          w.VehicleVIN,
		"GraceDays":    polCfg.GraceDays,
	}
	if w.DueDate != nil {
		data["DueDate"] = w.DueDate.Format("2006-01-02")
	}

	switch rt {
	case models.ReminderElevenMonth:
		return i18n.T("reminder_eleven_month_subject"), i18n.TData("reminder_eleven_month_body", data)
	case models.ReminderThirtyDay:
		return i18n.T("reminder_thirty_day_subject"), i18n.TData("reminder_thirty_day_body", data)
	default:
		return i18n.T("reminder_due_date_subject"), i18n.TData("reminder_due_date_body", data)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
