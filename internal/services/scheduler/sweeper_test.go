// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package scheduler_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/config"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
	"github.com/coatsure/warrantyd/internal/services/scheduler"
	"github.com/coatsure/warrantyd/internal/services/token"
	"github.com/coatsure/warrantyd/internal/testutil"
)

type fixture struct {
	repo    *repository.Repository
	machine *lifecycle.Service
	tokens  *token.Service
	gateway *testutil.FakeGateway
	sweeper *scheduler.Sweeper
	cfg     config.SchedulerConfig
	clk     *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.InitI18n(t)

	_, repo := testutil.NewTestDB(t)
	clk := clock.NewManual(time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))
	gateway := &testutil.FakeGateway{}
	tokens := token.NewService(repo, config.TokenConfig{
		InstallerTTL: 60 * 24 * time.Hour,
		CustomerTTL:  30 * 24 * time.Hour,
	}, clk)
	polCfg := policy.Defaults()
	machine := lifecycle.NewService(repo, tokens, gateway,
		testutil.StaticChecker{Complete: true}, polCfg, clk, "http://localhost:8080")

	cfg := config.SchedulerConfig{
		ReminderInterval:       time.Hour,
		GraceInterval:          24 * time.Hour,
		ReconcileInterval:      24 * time.Hour,
		InterSendDelay:         0,
		ActivationMaxReminders: 3,
		ActivationInitialDelay: 24 * time.Hour,
		ActivationCooldown:     72 * time.Hour,
	}
	sw := scheduler.NewSweeper(repo, machine, tokens, gateway, cfg, polCfg, clk, "http://localhost:8080")

	return &fixture{repo: repo, machine: machine, tokens: tokens, gateway: gateway, sweeper: sw, cfg: cfg, clk: clk}
}

func activeWarrantyWithSchedule(t *testing.T, f *fixture, activated time.Time) *models.WarrantyRecord {
	t.Helper()
	cfg := policy.Defaults()
	due := policy.DueDate(activated, cfg)
	w := testutil.NewActiveWarranty(t, f.repo, activated, due, policy.GracePeriodEnd(due, cfg))
	require.NoError(t, f.repo.ReplaceReminders(context.Background(), w.ID,
		models.RecordTypeWarranty, policy.ReminderSchedule(due, cfg)))
	return w
}

func TestDispatchReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	w := activeWarrantyWithSchedule(t, f, activated)

	// Nothing due yet.
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 0, f.gateway.EmailCount())

	// On the eleven-month date exactly one reminder goes out.
	f.clk.Set(time.Date(2024, time.December, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	require.Equal(t, 1, f.gateway.EmailCount())
	assert.Equal(t, w.CustomerEmail, f.gateway.LastEmail(t).To)

	// Re-running the sweep sends nothing twice.
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 1, f.gateway.EmailCount())

	got, err := f.repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RemindersSent)

	entries, err := f.repo.ListAuditEntries(ctx, w.ID, models.RecordTypeWarranty)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionReminderSent, entries[0].ActionType)
	assert.Equal(t, string(models.ReminderElevenMonth), entries[0].Reason)
}

func TestDispatchReminders_DueDateAlsoSendsSMS(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	activeWarrantyWithSchedule(t, f, activated)

	// Jump straight past the due date: all three entries are due at once.
	f.clk.Set(time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, f.sweeper.DispatchReminders(ctx))

	assert.Equal(t, 3, f.gateway.EmailCount())
	require.Len(t, f.gateway.SMS, 1)
	assert.Contains(t, f.gateway.SMS[0].Body, "due")
}

func TestDispatchReminders_FailureIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	w := activeWarrantyWithSchedule(t, f, activated)

	f.clk.Set(time.Date(2024, time.December, 10, 9, 0, 0, 0, time.UTC))
	f.gateway.EmailErr = errors.New("smtp down")
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 0, f.gateway.EmailCount())

	reminders, err := f.repo.ListRemindersForRecord(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderFailed, reminders[0].Status)

	// The transport recovers; the next sweep delivers.
	f.gateway.EmailErr = nil
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 1, f.gateway.EmailCount())
}

func TestDispatchReminders_InactiveRecordCancelsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	w := activeWarrantyWithSchedule(t, f, activated)

	// The warranty is cancelled before the reminder fires.
	got, err := f.repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	got.Status = models.WarrantyCancelled
	got.IsActive = false
	require.NoError(t, f.repo.UpdateWarranty(ctx, got, models.WarrantyActive))

	f.clk.Set(time.Date(2024, time.December, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 0, f.gateway.EmailCount())

	live, err := f.repo.CountLiveReminders(ctx, w.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, live)
}

func TestActivationReminders_Cadence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := testutil.NewTestWarranty(t, f.repo, models.WarrantyPendingActivation)
	_, err := f.tokens.Issue(ctx, models.TokenCustomerActivation,
		w.ID, models.RecordTypeWarranty, token.Subject{CustomerContact: w.CustomerEmail})
	require.NoError(t, err)

	// One hour after issuance: inside the initial delay, nothing goes out.
	f.clk.Advance(time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 0, f.gateway.EmailCount())

	// 25 hours after issuance: first reminder.
	f.clk.Advance(24 * time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 1, f.gateway.EmailCount())
	assert.Contains(t, f.gateway.LastEmail(t).TextBody, "/activate/")

	// One hour later: inside the cooldown, still one.
	f.clk.Advance(time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 1, f.gateway.EmailCount())

	// Past the cooldown: second and third reminders.
	f.clk.Advance(72 * time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 2, f.gateway.EmailCount())
	f.clk.Advance(72 * time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 3, f.gateway.EmailCount())

	// The cap holds no matter how much time passes.
	f.clk.Advance(500 * time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 3, f.gateway.EmailCount())
}

func TestActivationReminders_FreshLinkEachTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := testutil.NewTestWarranty(t, f.repo, models.WarrantyPendingActivation)
	issued, err := f.tokens.Issue(ctx, models.TokenCustomerActivation,
		w.ID, models.RecordTypeWarranty, token.Subject{CustomerContact: w.CustomerEmail})
	require.NoError(t, err)

	f.clk.Advance(25 * time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	require.Equal(t, 1, f.gateway.EmailCount())

	// The reminder carries a new token; the original link is dead.
	body := f.gateway.LastEmail(t).TextBody
	idx := strings.Index(body, "/activate/")
	require.GreaterOrEqual(t, idx, 0)
	fresh := body[idx+len("/activate/") : idx+len("/activate/")+2*token.TokenLength]
	assert.NotEqual(t, issued.Plaintext, fresh)

	_, err = f.tokens.Validate(ctx, issued.Plaintext, models.TokenCustomerActivation)
	assert.ErrorIs(t, err, token.ErrAlreadyUsed)
	_, err = f.tokens.Validate(ctx, fresh, models.TokenCustomerActivation)
	assert.NoError(t, err)
}

func TestActivationReminders_ActivatedWarrantyIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := testutil.NewTestWarranty(t, f.repo, models.WarrantyActive)
	_, err := f.tokens.Issue(ctx, models.TokenCustomerActivation,
		w.ID, models.RecordTypeWarranty, token.Subject{CustomerContact: w.CustomerEmail})
	require.NoError(t, err)

	f.clk.Advance(25 * time.Hour)
	require.NoError(t, f.sweeper.DispatchReminders(ctx))
	assert.Equal(t, 0, f.gateway.EmailCount())
}

func TestSweepGrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	lapsedA := activeWarrantyWithSchedule(t, f, activated)
	lapsedB := activeWarrantyWithSchedule(t, f, activated)
	healthy := activeWarrantyWithSchedule(t, f, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC))

	// One day past the grace boundary of the January warranties.
	f.clk.Set(time.Date(2025, time.February, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, f.sweeper.SweepGrace(ctx))

	gotA, err := f.repo.GetWarranty(ctx, lapsedA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyExpired, gotA.Status)
	gotB, err := f.repo.GetWarranty(ctx, lapsedB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyExpired, gotB.Status)
	gotHealthy, err := f.repo.GetWarranty(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyActive, gotHealthy.Status)

	// Re-running the sweep is a no-op: still exactly one ledger entry each.
	require.NoError(t, f.sweeper.SweepGrace(ctx))
	entries, err := f.repo.ListAuditEntries(ctx, lapsedA.ID, models.RecordTypeWarranty)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionGraceExpired, entries[0].ActionType)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg := policy.Defaults()
	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	due := policy.DueDate(activated, cfg)
	// Active warranty past due with no reminder schedule at all.
	w := testutil.NewActiveWarranty(t, f.repo, activated, due, policy.GracePeriodEnd(due, cfg))

	// An expired token lingering in the store.
	_, err := f.tokens.Issue(ctx, models.TokenCustomerActivation,
		w.ID, models.RecordTypeWarranty, token.Subject{})
	require.NoError(t, err)

	f.clk.Set(time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, f.sweeper.Reconcile(ctx))

	got, err := f.repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOverdue)

	// The missing schedule was restored.
	live, err := f.repo.CountLiveReminders(ctx, w.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, live)

	// The expired activation token is gone.
	toks, err := f.repo.ListActivationTokensDue(ctx, f.clk.Now(), 99, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, toks)
}
