// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package reinstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/policy"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
	"github.com/coatsure/warrantyd/internal/services/reinstate"
	"github.com/coatsure/warrantyd/internal/testutil"
)

func newService(t *testing.T) (*reinstate.Service, *repository.Repository, *clock.Manual) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	clk := clock.NewManual(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC))
	return reinstate.NewService(repo, policy.Defaults(), clk), repo, clk
}

// expiredWarranty builds a warranty that lapsed after the standard 2024 cycle:
// activated 2024-01-10, due 2025-01-10, grace ended 2025-02-09.
func expiredWarranty(t *testing.T, repo *repository.Repository) *models.WarrantyRecord {
	t.Helper()
	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	grace := time.Date(2025, time.February, 9, 0, 0, 0, 0, time.UTC)

	w := testutil.NewActiveWarranty(t, repo, activated, due, grace)
	w.Status = models.WarrantyExpired
	w.IsActive = false
	w.IsGraceExpired = true
	require.NoError(t, repo.UpdateWarranty(context.Background(), w, models.WarrantyActive))
	return w
}

func TestReinstate(t *testing.T) {
	svc, repo, clk := newService(t)
	ctx := context.Background()
	w := expiredWarranty(t, repo)

	got, err := svc.Reinstate(ctx, w.ID, "admin@example.com", "customer paid outstanding inspection")
	require.NoError(t, err)

	assert.Equal(t, models.WarrantyActive, got.Status)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsGraceExpired)
	assert.False(t, got.IsOverdue)

	// Dates restart from today, not from the old cycle.
	wantDue := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(wantDue))
	require.NotNil(t, got.GracePeriodEnd)
	assert.True(t, got.GracePeriodEnd.Equal(wantDue.AddDate(0, 0, 30)))
	require.NotNil(t, got.LastVerifiedAt)
	assert.True(t, got.LastVerifiedAt.Equal(clk.Now()))

	// Fresh reminder schedule for the new cycle.
	live, err := repo.CountLiveReminders(ctx, w.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, live)

	entry, err := repo.CurrentAuditEntry(ctx, w.ID, models.RecordTypeWarranty)
	require.NoError(t, err)
	assert.Equal(t, models.ActionReinstated, entry.ActionType)
	assert.Equal(t, "admin@example.com", entry.PerformedBy)
	assert.Equal(t, "customer paid outstanding inspection", entry.Reason)
	assert.Equal(t, string(models.WarrantyExpired), entry.StatusBefore)
	assert.Equal(t, string(models.WarrantyActive), entry.StatusAfter)
}

func TestReinstate_RequiresReasonAndActor(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	w := expiredWarranty(t, repo)

	_, err := svc.Reinstate(ctx, w.ID, "admin@example.com", "")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	_, err = svc.Reinstate(ctx, w.ID, "", "some reason")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	got, err := repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyExpired, got.Status)
}

func TestReinstate_OnlyExpiredWarranties(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	w := testutil.NewTestWarranty(t, repo, models.WarrantyCancelled)

	_, err := svc.Reinstate(ctx, w.ID, "admin@example.com", "mistake")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestCheckEligibility(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	active := testutil.NewTestWarranty(t, repo, models.WarrantyActive)
	el, err := svc.CheckEligibility(ctx, active.ID)
	require.NoError(t, err)
	assert.False(t, el.Eligible)
	assert.Equal(t, "not lapsed", el.Reason)

	expired := expiredWarranty(t, repo)
	el, err = svc.CheckEligibility(ctx, expired.ID)
	require.NoError(t, err)
	assert.True(t, el.Eligible)
	assert.False(t, el.ReverifiedSinceLapse)
}

func TestCheckEligibility_ReverifiedSinceLapse(t *testing.T) {
	svc, repo, clk := newService(t)
	ctx := context.Background()
	w := expiredWarranty(t, repo)

	// An inspection verified after the grace boundary.
	in := testutil.NewTestInspection(t, repo, w.ID, models.InspectionSubmitted)
	in.Status = models.InspectionVerified
	verifiedAt := clk.Now()
	in.VerifiedAt = &verifiedAt
	require.NoError(t, repo.UpdateInspection(ctx, in, models.InspectionSubmitted))

	el, err := svc.CheckEligibility(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, el.Eligible)
	assert.True(t, el.ReverifiedSinceLapse)
}
