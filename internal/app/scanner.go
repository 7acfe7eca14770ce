// internal/app/scanner.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
	idb "github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// CheckinGapScanner finds students whose reminders are enabled and whose most
// recent check-in is missing or stale.
type CheckinGapScanner struct {
	logger *logrus.Entry
}

func NewCheckinGapScanner(logger *logrus.Entry) *CheckinGapScanner {
	return &CheckinGapScanner{logger: logger}
}

// FindCandidates returns the tenant's candidates as of asOf with HoursSinceCheckin
// filled in. A tenant without reminder support yields an empty list and is marked
// SchemaIncompatible on the session.
func (s *CheckinGapScanner) FindCandidates(ctx context.Context, t *TenantSession, asOf time.Time) ([]*reminder.Candidate, error) {
	log := s.logger.WithFields(logrus.Fields{"tenant": t.Name, "run_id": t.RunID})
	if !t.Caps.Reminders {
		t.SchemaIncompatible = true
		log.Info("Tenant schema has no reminder columns, skipping scan")
		return []*reminder.Candidate{}, nil
	}

	rows, err := t.Store.ListCandidates(ctx, asOf)
	if err != nil {
		if idb.IsSchemaError(err) {
			t.SchemaIncompatible = true
			log.WithError(err).Warn("Reminder query hit a missing column or table, treating tenant as having no candidates")
			return []*reminder.Candidate{}, nil
		}
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	candidates := make([]*reminder.Candidate, 0, len(rows))
	for _, c := range rows {
		if !c.ReminderEnabled || c.CheckedInOn(asOf) {
			continue
		}
		c.HoursSinceCheckin = reminder.ComputeHoursSinceCheckin(asOf, c.CreatedAt, c.LastCheckinDate)
		candidates = append(candidates, c)
	}

	log.WithField("candidates", len(candidates)).Debug("Scan complete")
	return candidates, nil
}
