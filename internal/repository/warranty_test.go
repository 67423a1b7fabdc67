// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/testutil"
)

func TestCreateAndGetWarranty(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	w := testutil.NewTestWarranty(t, repo, models.WarrantyDraft)

	got, err := repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, w.VehicleVIN, got.VehicleVIN)
	assert.Equal(t, models.WarrantyDraft, got.Status)
	assert.False(t, got.IsActive)
}

func TestGetWarranty_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetWarranty(context.Background(), uuid.New())

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateWarranty_OptimisticConcurrency(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	w := testutil.NewTestWarranty(t, repo, models.WarrantyDraft)

	w.Status = models.WarrantySubmitted
	require.NoError(t, repo.UpdateWarranty(ctx, w, models.WarrantyDraft))

	// A second writer still holding the draft view loses the race.
	stale := *w
	stale.Status = models.WarrantyCancelled
	err := repo.UpdateWarranty(ctx, &stale, models.WarrantyDraft)
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarrantySubmitted, got.Status)
}

func TestExpireLapsedWarranty(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	graceEnd := time.Date(2025, time.February, 9, 0, 0, 0, 0, time.UTC)
	w := testutil.NewActiveWarranty(t, repo, activated, due, graceEnd)

	// Before the grace boundary nothing matches.
	expired, err := repo.ExpireLapsedWarranty(ctx, w.ID, graceEnd.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = repo.ExpireLapsedWarranty(ctx, w.ID, graceEnd)
	require.NoError(t, err)
	assert.True(t, expired)

	// Second sweep finds the row already expired.
	expired, err = repo.ExpireLapsedWarranty(ctx, w.ID, graceEnd)
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarrantyExpired, got.Status)
	assert.False(t, got.IsActive)
	assert.True(t, got.IsGraceExpired)
}

func TestListLapsedWarranties(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	due := activated.AddDate(1, 0, 0)
	lapsed := testutil.NewActiveWarranty(t, repo, activated, due, due.AddDate(0, 0, 30))
	testutil.NewActiveWarranty(t, repo, activated, due, due.AddDate(0, 0, 365))

	ws, err := repo.ListLapsedWarranties(ctx, due.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, lapsed.ID, ws[0].ID)
}

func TestMarkWarrantiesOverdue(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	activated := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	due := activated.AddDate(1, 0, 0)
	w := testutil.NewActiveWarranty(t, repo, activated, due, due.AddDate(0, 0, 30))

	n, err := repo.MarkWarrantiesOverdue(ctx, due.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Repeated run is a no-op.
	n, err = repo.MarkWarrantiesOverdue(ctx, due.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOverdue)
}

func TestIncrementWarrantyReminders(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	w := testutil.NewTestWarranty(t, repo, models.WarrantyActive)

	require.NoError(t, repo.IncrementWarrantyReminders(ctx, w.ID))
	require.NoError(t, repo.IncrementWarrantyReminders(ctx, w.ID))

	got, err := repo.GetWarranty(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RemindersSent)
}
