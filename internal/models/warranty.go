// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the lifecycle aggregates and their closed status sets.
package models

import (
	"time"

	"github.com/google/uuid"
)

// WarrantyRecord is the authoritative state of one physical warranty.
// Status and the date fields are written exclusively by the lifecycle
// service; everyone else reads.
type WarrantyRecord struct { //nolint:govet // fieldalignment not critical for models
	ID             uuid.UUID      `db:"id" json:"id"`
	VehicleVIN     string         `db:"vehicle_vin" json:"vehicle_vin"`
	CustomerName   string         `db:"customer_name" json:"customer_name"`
	CustomerEmail  string         `db:"customer_email" json:"customer_email"`
	CustomerPhone  string         `db:"customer_phone" json:"customer_phone"`
	InstallerID    uuid.UUID      `db:"installer_id" json:"installer_id"`
	InstallerEmail string         `db:"installer_email" json:"installer_email"`
	Status         WarrantyStatus `db:"status" json:"status"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	IsOverdue      bool           `db:"is_overdue" json:"is_overdue"`
	IsGraceExpired bool           `db:"is_grace_expired" json:"is_grace_expired"`
	RemindersSent  int            `db:"reminders_sent" json:"reminders_sent"`
	InstalledAt    *time.Time     `db:"installed_at" json:"installed_at,omitempty"`
	ActivatedAt    *time.Time     `db:"activated_at" json:"activated_at,omitempty"`
	LastVerifiedAt *time.Time     `db:"last_verified_at" json:"last_verified_at,omitempty"`
	DueDate        *time.Time     `db:"due_date" json:"due_date,omitempty"`
	GracePeriodEnd *time.Time     `db:"grace_period_end" json:"grace_period_end,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
