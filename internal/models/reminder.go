// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderType identifies one slot in a record's reminder schedule.
type ReminderType string

const (
	ReminderElevenMonth ReminderType = "eleven_month"
	ReminderThirtyDay   ReminderType = "thirty_day"
	ReminderDueDate     ReminderType = "due_date"
)

// ReminderTypes lists all schedule slots in dispatch order.
func ReminderTypes() []ReminderType {
	return []ReminderType{ReminderElevenMonth, ReminderThirtyDay, ReminderDueDate}
}

// ReminderStatus is the delivery state of a reminder entry.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
	ReminderCancelled ReminderStatus = "cancelled"
)

// ReminderEntry is one scheduled notification for a lifecycle record.
// Invariant: at most one undispatched (pending or failed) entry per
// (record, type); sent entries remain as dispatch history.
type ReminderEntry struct { //nolint:govet // fieldalignment not critical for models
	ID            uuid.UUID      `db:"id" json:"id"`
	RecordID      uuid.UUID      `db:"record_id" json:"record_id"`
	RecordType    RecordType     `db:"record_type" json:"record_type"`
	Type          ReminderType   `db:"reminder_type" json:"reminder_type"`
	ScheduledDate time.Time      `db:"scheduled_date" json:"scheduled_date"`
	Status        ReminderStatus `db:"status" json:"status"`
	SentAt        *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	FailureReason string         `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
