// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType tags what caused an audit entry.
type ActionType string

const (
	ActionSubmitted          ActionType = "submitted"
	ActionInstallerVerified  ActionType = "installer_verified"
	ActionInstallerDeclined  ActionType = "installer_declined"
	ActionCustomerActivated  ActionType = "customer_activated"
	ActionInspectionVerified ActionType = "inspection_verified"
	ActionInspectionRejected ActionType = "inspection_rejected"
	ActionReverified         ActionType = "reverified"
	ActionGraceExpired       ActionType = "grace_expired"
	ActionReminderSent       ActionType = "reminder_sent"
	ActionReinstated         ActionType = "reinstated"
	ActionAdminOverride      ActionType = "admin_override"
)

// AuditEntry is one immutable row of the append-only ledger. Exactly one of
// WarrantyID/InspectionID is set, version numbers increase without gaps per
// record, and exactly one entry per record carries IsCurrentVersion.
type AuditEntry struct { //nolint:govet // fieldalignment not critical for models
	ID                 uuid.UUID  `db:"id" json:"id"`
	WarrantyID         *uuid.UUID `db:"warranty_id" json:"warranty_id,omitempty"`
	InspectionID       *uuid.UUID `db:"inspection_id" json:"inspection_id,omitempty"`
	ActionType         ActionType `db:"action_type" json:"action_type"`
	StatusBefore       string     `db:"status_before" json:"status_before"`
	StatusAfter        string     `db:"status_after" json:"status_after"`
	PerformedBy        string     `db:"performed_by" json:"performed_by"`
	PerformedAt        time.Time  `db:"performed_at" json:"performed_at"`
	Reason             string     `db:"reason" json:"reason,omitempty"`
	SubmissionSnapshot []byte     `db:"submission_snapshot" json:"submission_snapshot,omitempty"`
	VersionNumber      int64      `db:"version_number" json:"version_number"`
	IsCurrentVersion   bool       `db:"is_current_version" json:"is_current_version"`
}

// RecordID returns the referenced record and its type.
func (e *AuditEntry) RecordID() (uuid.UUID, RecordType) {
	if e.WarrantyID != nil {
		return *e.WarrantyID, RecordTypeWarranty
	}
	if e.InspectionID != nil {
		return *e.InspectionID, RecordTypeInspection
	}
	return uuid.Nil, ""
}
