// internal/domain/reminder/candidate.go
package reminder

import (
	"database/sql"
	"time"
)

// Candidate is a student eligible for reminder evaluation in the current run.
// Corresponds to a row of the 'students' table joined with the latest check-in date.
type Candidate struct {
	StudentID             int64
	DisplayName           string
	ContactEmail          sql.NullString
	ReminderEnabled       bool
	ReminderIntervalHours int
	LastCheckinDate       sql.NullTime // DATE column, only Y/M/D is meaningful
	LastMissedCheckinAt   sql.NullTime
	LastReminderSentAt    sql.NullTime
	CreatedAt             time.Time

	// HoursSinceCheckin is filled in by the scanner, see ComputeHoursSinceCheckin.
	HoursSinceCheckin float64
}

// DaysSinceCheckin is HoursSinceCheckin expressed in (fractional) days.
func (c *Candidate) DaysSinceCheckin() float64 {
	return c.HoursSinceCheckin / 24
}

// IntervalHours returns the student's configured interval or the default.
func (c *Candidate) IntervalHours() int {
	if c.ReminderIntervalHours <= 0 {
		return DefaultReminderIntervalHours
	}
	return c.ReminderIntervalHours
}

// CheckedInOn reports whether the last check-in falls on asOf's calendar date.
func (c *Candidate) CheckedInOn(asOf time.Time) bool {
	if !c.LastCheckinDate.Valid {
		return false
	}
	return DateOnly(c.LastCheckinDate.Time).Equal(DateOnly(asOf))
}

// ComputeHoursSinceCheckin uses two different time bases.
// Without any check-in it is the elapsed wall time since the account was created.
// With a check-in it is the calendar-day difference between asOf and the check-in date,
// scaled to hours. Both are kept as-is; see DESIGN.md before unifying them.
func ComputeHoursSinceCheckin(asOf time.Time, createdAt time.Time, lastCheckin sql.NullTime) float64 {
	if !lastCheckin.Valid {
		h := asOf.Sub(createdAt).Hours()
		if h < 0 {
			return 0
		}
		return h
	}
	days := int(DateOnly(asOf).Sub(DateOnly(lastCheckin.Time)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return float64(days * 24)
}

// DateOnly normalizes t to midnight UTC of its own calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
