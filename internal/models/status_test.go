// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coatsure/warrantyd/internal/models"
)

func TestWarrantyStatus_LegalTransitions(t *testing.T) {
	legal := []struct {
		from, to models.WarrantyStatus
	}{
		{models.WarrantyDraft, models.WarrantySubmitted},
		{models.WarrantySubmitted, models.WarrantyPendingActivation},
		{models.WarrantySubmitted, models.WarrantyRejected},
		{models.WarrantyPendingActivation, models.WarrantyActive},
		{models.WarrantyActive, models.WarrantyExpired},
		{models.WarrantyExpired, models.WarrantyActive}, // reinstatement
		{models.WarrantyRejected, models.WarrantySubmitted},
		{models.WarrantyActive, models.WarrantyCancelled},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestWarrantyStatus_IllegalTransitions(t *testing.T) {
	illegal := []struct {
		from, to models.WarrantyStatus
	}{
		{models.WarrantyDraft, models.WarrantyActive},
		{models.WarrantyDraft, models.WarrantyPendingActivation},
		{models.WarrantySubmitted, models.WarrantyActive},
		{models.WarrantyActive, models.WarrantySubmitted},
		{models.WarrantyExpired, models.WarrantySubmitted},
		{models.WarrantyCancelled, models.WarrantyActive},
		{models.WarrantyCancelled, models.WarrantySubmitted},
		{models.WarrantyRejected, models.WarrantyActive},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestWarrantyStatus_CancelledIsTerminal(t *testing.T) {
	assert.True(t, models.WarrantyCancelled.Terminal())
	assert.False(t, models.WarrantyExpired.Terminal())
	assert.False(t, models.WarrantyActive.Terminal())
}

func TestWarrantyStatus_Valid(t *testing.T) {
	assert.True(t, models.WarrantyDraft.Valid())
	assert.True(t, models.WarrantyPendingActivation.Valid())
	assert.False(t, models.WarrantyStatus("ACTIVE").Valid())
	assert.False(t, models.WarrantyStatus("").Valid())
}

func TestInspectionStatus_Transitions(t *testing.T) {
	assert.True(t, models.InspectionDraft.CanTransitionTo(models.InspectionSubmitted))
	assert.True(t, models.InspectionSubmitted.CanTransitionTo(models.InspectionVerified))
	assert.True(t, models.InspectionSubmitted.CanTransitionTo(models.InspectionRejected))
	assert.True(t, models.InspectionRejected.CanTransitionTo(models.InspectionSubmitted))

	assert.False(t, models.InspectionDraft.CanTransitionTo(models.InspectionVerified))
	assert.False(t, models.InspectionVerified.CanTransitionTo(models.InspectionSubmitted))
	assert.False(t, models.InspectionVerified.CanTransitionTo(models.InspectionRejected))
}

func TestRecordType_Valid(t *testing.T) {
	assert.True(t, models.RecordTypeWarranty.Valid())
	assert.True(t, models.RecordTypeInspection.Valid())
	assert.False(t, models.RecordType("user").Valid())
}
