// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/google/uuid"
)

// InspectionRecord is one annual re-verification of a warranty. Its cycle is
// simpler than the warranty's: draft -> submitted -> verified | rejected.
type InspectionRecord struct { //nolint:govet // fieldalignment not critical for models
	ID          uuid.UUID        `db:"id" json:"id"`
	WarrantyID  uuid.UUID        `db:"warranty_id" json:"warranty_id"`
	InspectorID uuid.UUID        `db:"inspector_id" json:"inspector_id"`
	Status      InspectionStatus `db:"status" json:"status"`
	Notes       string           `db:"notes" json:"notes"`
	SubmittedAt *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time       `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}
