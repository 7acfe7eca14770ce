// internal/domain/reminder/summary.go
package reminder

import "time"

// TenantReport is the per-tenant part of a run.
type TenantReport struct {
	Tenant          string        `json:"tenant"`
	Outcome         TenantOutcome `json:"outcome"`
	CandidatesFound int           `json:"candidatesFound"`
	RemindersSent   int           `json:"remindersSent"`
	AlertsCreated   int           `json:"alertsCreated"`
	FlaggedSends    int           `json:"flaggedSends"`
	SentByTier      map[Tier]int  `json:"sentByTier,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// RunSummary is the machine-readable result of one run.
type RunSummary struct {
	RunID           string         `json:"runId"`
	StartedAt       time.Time      `json:"startedAt"`
	TenantsScanned  int            `json:"tenantsScanned"`
	TenantsFailed   int            `json:"tenantsFailed"`
	CandidatesFound int            `json:"candidatesFound"`
	RemindersSent   int            `json:"remindersSent"`
	AlertsCreated   int            `json:"alertsCreated"`
	FlaggedSends    int            `json:"flaggedSends"`
	DurationMs      int64          `json:"durationMs"`
	Tenants         []TenantReport `json:"tenants"`
}

// Add folds a tenant report into the totals.
func (s *RunSummary) Add(r TenantReport) {
	s.Tenants = append(s.Tenants, r)
	if r.Outcome.Failed() {
		s.TenantsFailed++
	} else {
		s.TenantsScanned++
	}
	s.CandidatesFound += r.CandidatesFound
	s.RemindersSent += r.RemindersSent
	s.AlertsCreated += r.AlertsCreated
	s.FlaggedSends += r.FlaggedSends
}
