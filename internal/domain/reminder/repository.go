// internal/domain/reminder/repository.go
package reminder

import (
	"context"
	"time"
)

// Store is the data-access capability a single tenant exposes to the engine.
type Store interface {
	// Probe reports which optional tables/columns the tenant schema has.
	Probe(ctx context.Context) (Capabilities, error)

	// ListCandidates returns students with reminders enabled who either never checked in
	// or whose last check-in date is before asOf's date minus one day.
	ListCandidates(ctx context.Context, asOf time.Time) ([]*Candidate, error)

	// MarkMissedCheckin sets last_missed_checkin_at only if it is still unset.
	MarkMissedCheckin(ctx context.Context, studentID int64, at time.Time) error

	// OpenStaffAlert inserts the alert unless an active one of the same type exists.
	// created is false when the insert was ignored.
	OpenStaffAlert(ctx context.Context, alert *StaffAlert) (created bool, err error)

	// ClaimReminderSlot sets last_reminder_sent_at = at when no reminder was sent within minGap.
	// claimed is false when another run already sent inside the gap.
	ClaimReminderSlot(ctx context.Context, studentID int64, at time.Time, minGap time.Duration) (claimed bool, err error)

	InsertReminderRecord(ctx context.Context, rec *Record) error
	InsertAuditEvent(ctx context.Context, ev *AuditEvent) error

	// FindStaffSender returns the first user with a staff-like role.
	FindStaffSender(ctx context.Context) (*Sender, error)
	InsertMessage(ctx context.Context, msg *Message) error
}
