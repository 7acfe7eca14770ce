// internal/domain/reminder/shared_types.go
package reminder

// Tier is the escalation severity derived from days since the last check-in.
type Tier string

const (
	TierNormal    Tier = "normal"
	TierEscalated Tier = "escalated"
	TierCritical  Tier = "critical"
)

// Channel identifies how a reminder reaches the student.
type Channel string

const (
	ChannelInApp Channel = "in_app"
)

// RecordStatus is the delivery status stored on a reminder_logs row.
type RecordStatus string

const (
	RecordStatusSent    RecordStatus = "sent"
	RecordStatusFlagged RecordStatus = "flagged" // bookkeeping write failed, next run may resend
)

const (
	AlertTypeUrgent   = "urgent"
	AlertStatusActive = "active"
)

// TenantOutcome describes how a single tenant's pass ended.
type TenantOutcome string

const (
	OutcomeScanned            TenantOutcome = "scanned"
	OutcomeSchemaIncompatible TenantOutcome = "schema_incompatible"
	OutcomeUnavailable        TenantOutcome = "unavailable"
	OutcomeTimedOut           TenantOutcome = "timed_out"
	OutcomeCancelled          TenantOutcome = "cancelled"
)

// Failed reports whether the outcome counts towards tenantsFailed.
func (o TenantOutcome) Failed() bool {
	switch o {
	case OutcomeUnavailable, OutcomeTimedOut, OutcomeCancelled:
		return true
	}
	return false
}

// DefaultReminderIntervalHours applies when a student has no usable interval configured.
const DefaultReminderIntervalHours = 24
