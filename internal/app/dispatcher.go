// internal/app/dispatcher.go
package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
	idb "github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/database"

	"github.com/sirupsen/logrus"
)

const auditActorSystem = "system"

// Dispatch step names, used as the "step" log field.
const (
	stepMarkMissed  = "mark_missed"
	stepStaffAlert  = "staff_alert"
	stepBookkeeping = "bookkeeping"
	stepRecord      = "reminder_record"
	stepAudit       = "audit"
	stepMessage     = "message"
)

// ReminderDispatcher applies an EscalationDecision to a tenant store.
type ReminderDispatcher struct {
	clock  func() time.Time
	logger *logrus.Entry
}

func NewReminderDispatcher(clock func() time.Time, logger *logrus.Entry) *ReminderDispatcher {
	if clock == nil {
		clock = time.Now
	}
	return &ReminderDispatcher{clock: clock, logger: logger}
}

// Dispatch performs the writes for one candidate. Each step is fault tolerant: failures
// are logged with tenant/student/step context and never returned to the caller, so the
// run moves on to the next student. Once the send slot is claimed the remaining steps
// run to completion even if ctx is cancelled.
func (d *ReminderDispatcher) Dispatch(ctx context.Context, t *TenantSession, c *reminder.Candidate, dec reminder.Decision) reminder.DispatchOutcome {
	now := d.clock()
	days := int(math.Floor(c.DaysSinceCheckin()))
	log := d.logger.WithFields(logrus.Fields{
		"tenant":     t.Name,
		"run_id":     t.RunID,
		"student_id": c.StudentID,
		"tier":       dec.Tier,
	})
	outcome := reminder.DispatchOutcome{Tier: dec.Tier}

	// 1. First-detection timestamp.
	if !c.LastMissedCheckinAt.Valid {
		if err := t.Store.MarkMissedCheckin(ctx, c.StudentID, now); err != nil {
			log.WithError(err).WithField("step", stepMarkMissed).Warn("Failed to record missed check-in")
		} else {
			c.LastMissedCheckinAt.Time, c.LastMissedCheckinAt.Valid = now, true
		}
	}

	// 2. Staff alert for the critical tier, insert-if-absent.
	if dec.Tier == reminder.TierCritical {
		if t.Caps.Alerts {
			alert := &reminder.StaffAlert{
				StudentID: c.StudentID,
				Type:      reminder.AlertTypeUrgent,
				Status:    reminder.AlertStatusActive,
				Message:   reminder.CriticalAlertMessage(c.DisplayName, days),
				CreatedAt: now,
			}
			created, err := t.Store.OpenStaffAlert(ctx, alert)
			if err != nil {
				log.WithError(err).WithField("step", stepStaffAlert).Error("Failed to open staff alert")
			} else if created {
				outcome.AlertCreated = true
				log.WithField("alert_id", alert.ID).Info("Opened urgent staff alert")
			}
		} else {
			log.WithField("step", stepStaffAlert).Debug("Tenant has no alerts table, skipping staff alert")
		}
	}

	// 3. Not due.
	if !dec.ShouldSend {
		return outcome
	}

	// 4. Claim the send slot. Everything after this must not be abandoned half way.
	wctx := context.WithoutCancel(ctx)
	claimed, err := t.Store.ClaimReminderSlot(wctx, c.StudentID, now, dec.EffectiveInterval())
	if err != nil {
		outcome.Flagged = true
		outcome.Err = err
		log.WithError(err).WithFields(logrus.Fields{"step": stepBookkeeping, "flagged": true}).
			Error("Failed to update last_reminder_sent_at, sending anyway; the next run may send again")
	} else if !claimed {
		log.WithField("step", stepBookkeeping).Info("Reminder already sent inside the minimum gap by another run, skipping")
		return outcome
	}
	outcome.Sent = true

	// 5. Reminder record.
	recordWritten := false
	if t.Caps.ReminderLog {
		status := reminder.RecordStatusSent
		if outcome.Flagged {
			status = reminder.RecordStatusFlagged
		}
		rec := &reminder.Record{
			StudentID:        c.StudentID,
			Tier:             dec.Tier,
			IntervalHours:    dec.EffectiveIntervalHours,
			DaysSinceCheckin: c.DaysSinceCheckin(),
			SentAt:           now,
			Channel:          reminder.ChannelInApp,
			Status:           status,
		}
		if err := t.Store.InsertReminderRecord(wctx, rec); err != nil {
			log.WithError(err).WithField("step", stepRecord).Error("Failed to insert reminder record")
		} else {
			recordWritten = true
		}
	}

	// 6. Audit, best effort.
	if t.Caps.Audit {
		ev := &reminder.AuditEvent{
			Actor:      auditActorSystem,
			Action:     "checkin_reminder_sent",
			EntityType: "student",
			EntityID:   c.StudentID,
			CreatedAt:  now,
			Details: map[string]any{
				"run_id":             t.RunID,
				"tier":               dec.Tier,
				"interval_hours":     dec.EffectiveIntervalHours,
				"days_since_checkin": days,
				"record_written":     recordWritten,
				"alert_created":      outcome.AlertCreated,
				"flagged":            outcome.Flagged,
			},
		}
		if err := t.Store.InsertAuditEvent(wctx, ev); err != nil {
			log.WithError(err).WithField("step", stepAudit).Warn("Failed to insert audit event")
		}
	}

	// 7. In-app message from a staff sender.
	if t.Caps.Messages && t.Caps.Users {
		d.sendMessage(wctx, t, c, dec, now, log)
	} else {
		log.WithField("step", stepMessage).Debug("Tenant has no messages/users tables, skipping in-app message")
	}

	log.WithField("days_since_checkin", days).Info("Reminder dispatched")
	return outcome
}

func (d *ReminderDispatcher) sendMessage(ctx context.Context, t *TenantSession, c *reminder.Candidate, dec reminder.Decision, now time.Time, log *logrus.Entry) {
	sender, err := t.StaffSender(ctx)
	if err != nil {
		if errors.Is(err, idb.ErrSenderNotFound) {
			log.WithField("step", stepMessage).Warn("No staff user to send from, skipping in-app message")
			return
		}
		log.WithError(err).WithField("step", stepMessage).Error("Failed to resolve staff sender")
		return
	}

	msg := reminder.ComposeMessage(dec.Tier, sender.UserID, c.StudentID, c.DisplayName)
	msg.CreatedAt = now
	if err := t.Store.InsertMessage(ctx, msg); err != nil {
		log.WithError(err).WithField("step", stepMessage).Error("Failed to insert in-app message")
	}
}
