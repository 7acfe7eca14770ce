// internal/domain/reminder/records.go
package reminder

import (
	"time"
)

// Record is one sent reminder. Corresponds to the append-only 'reminder_logs' table.
type Record struct {
	ID               int64
	StudentID        int64
	Tier             Tier
	IntervalHours    int
	DaysSinceCheckin float64
	SentAt           time.Time
	Channel          Channel
	Status           RecordStatus
}

// StaffAlert is opened for the critical tier. Corresponds to the 'alerts' table.
type StaffAlert struct {
	ID        int64
	StudentID int64
	Type      string // always AlertTypeUrgent for now
	Status    string
	Message   string
	CreatedAt time.Time
}

// AuditEvent is a system-attributed trace of a dispatch decision ('audit_logs').
type AuditEvent struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   int64
	Details    map[string]any
	CreatedAt  time.Time
}

// Message is an in-app inbox message ('messages').
type Message struct {
	ID                 int64
	SenderID           int64
	RecipientStudentID int64
	Subject            string
	Body               string
	Priority           MessagePriority
	CreatedAt          time.Time
}

// Sender is the staff user a reminder message is attributed to.
type Sender struct {
	UserID int64
	Role   string
}

// Capabilities records which optional parts of the tenant schema exist.
// Probed once per tenant per run.
type Capabilities struct {
	Reminders   bool // students reminder columns + checkins table
	ReminderLog bool
	Audit       bool
	Alerts      bool
	Messages    bool
	Users       bool
}

// DispatchOutcome is what a single dispatch did.
type DispatchOutcome struct {
	Sent         bool
	Tier         Tier
	AlertCreated bool
	// Flagged is set when the send happened but the bookkeeping write failed.
	Flagged bool
	Err     error
}
