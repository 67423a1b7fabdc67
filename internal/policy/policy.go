// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package policy computes due dates, reminder offsets and grace boundaries.
// Everything here is a pure function of (reference date, config).
package policy

import (
	"time"

	"github.com/coatsure/warrantyd/internal/models"
)

// Config carries the date offsets. All values are settable via flags; the
// zero value is not usable — use Defaults or the config package.
type Config struct {
	CycleMonths             int // verification cycle length
	GraceDays               int // grace period after the due date
	ElevenMonthOffsetMonths int // first reminder, months before due date
	ThirtyDayOffsetDays     int // second reminder, days before due date
}

// Defaults returns the documented default offsets: 12-month cycle, 30-day
// grace, reminders 1 month and 30 days ahead.
func Defaults() Config {
	return Config{
		CycleMonths:             12,
		GraceDays:               30,
		ElevenMonthOffsetMonths: 1,
		ThirtyDayOffsetDays:     30,
	}
}

// DueDate returns the next verification due date, one cycle after the last
// verified or activated date. A reference date in the future (clock skew)
// still yields a due date one full cycle after it, never an earlier one.
func DueDate(lastVerified time.Time, cfg Config) time.Time {
	due := dateOnly(lastVerified).AddDate(0, cfg.CycleMonths, 0)
	if due.Before(lastVerified) {
		due = dateOnly(lastVerified)
	}
	return due
}

// ElevenMonthReminder returns the first reminder date.
func ElevenMonthReminder(dueDate time.Time, cfg Config) time.Time {
	return dateOnly(dueDate).AddDate(0, -cfg.ElevenMonthOffsetMonths, 0)
}

// ThirtyDayReminder returns the second reminder date.
func ThirtyDayReminder(dueDate time.Time, cfg Config) time.Time {
	return dateOnly(dueDate).AddDate(0, 0, -cfg.ThirtyDayOffsetDays)
}

// GracePeriodEnd returns the last day a lapsed record can still be cured.
func GracePeriodEnd(dueDate time.Time, cfg Config) time.Time {
	return dateOnly(dueDate).AddDate(0, 0, cfg.GraceDays)
}

// ReminderSchedule returns the full reminder plan for a due date, in
// dispatch order.
func ReminderSchedule(dueDate time.Time, cfg Config) []models.ReminderEntry {
	return []models.ReminderEntry{
		{Type: models.ReminderElevenMonth, ScheduledDate: ElevenMonthReminder(dueDate, cfg), Status: models.ReminderPending},
		{Type: models.ReminderThirtyDay, ScheduledDate: ThirtyDayReminder(dueDate, cfg), Status: models.ReminderPending},
		{Type: models.ReminderDueDate, ScheduledDate: dateOnly(dueDate), Status: models.ReminderPending},
	}
}

// dateOnly truncates to midnight UTC so schedule comparisons are day-based.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
