package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dispatchNow = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func criticalCandidate() *reminder.Candidate {
	c := &reminder.Candidate{
		StudentID:       42,
		DisplayName:     "Jordan Lee",
		ReminderEnabled: true,
		LastCheckinDate: sql.NullTime{Time: dispatchNow.AddDate(0, 0, -4), Valid: true},
		CreatedAt:       dispatchNow.AddDate(-1, 0, 0),
	}
	c.HoursSinceCheckin = reminder.ComputeHoursSinceCheckin(dispatchNow, c.CreatedAt, c.LastCheckinDate)
	return c
}

func newTestDispatcher() *ReminderDispatcher {
	log, _ := testLogger()
	return NewReminderDispatcher(fixedClock(dispatchNow), log)
}

func newTestSession(store *fakeStore) *TenantSession {
	return NewTenantSession("north-high", "run-1", store, store.caps)
}

func TestDispatch_CriticalScenario(t *testing.T) {
	store := newFakeStore()
	session := newTestSession(store)
	c := criticalCandidate()
	dec := reminder.Decide(c, dispatchNow)
	require.Equal(t, reminder.TierCritical, dec.Tier)

	out := newTestDispatcher().Dispatch(context.Background(), session, c, dec)

	assert.True(t, out.Sent)
	assert.True(t, out.AlertCreated)
	assert.False(t, out.Flagged)

	require.Len(t, store.alerts, 1)
	assert.Equal(t, "urgent", store.alerts[0].Type)
	assert.Equal(t, "active", store.alerts[0].Status)
	assert.Contains(t, store.alerts[0].Message, "Jordan Lee")

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, reminder.TierCritical, rec.Tier)
	assert.Equal(t, 24, rec.IntervalHours)
	assert.Equal(t, 4.0, rec.DaysSinceCheckin)
	assert.Equal(t, reminder.RecordStatusSent, rec.Status)
	assert.Equal(t, reminder.ChannelInApp, rec.Channel)

	require.Len(t, store.messages, 1)
	msg := store.messages[0]
	critical := reminder.TemplateFor(reminder.TierCritical)
	assert.Equal(t, critical.Subject, msg.Subject)
	assert.Equal(t, reminder.PriorityUrgent, msg.Priority)
	assert.Equal(t, int64(900), msg.SenderID)
	assert.Equal(t, int64(42), msg.RecipientStudentID)

	require.Len(t, store.audits, 1)
	assert.Equal(t, "system", store.audits[0].Actor)
	assert.Equal(t, "run-1", store.audits[0].Details["run_id"])

	assert.Equal(t, dispatchNow, store.missedAt[42])
	assert.Equal(t, dispatchNow, store.lastSent[42])
}

func TestDispatch_IdempotentOnImmediateRepeat(t *testing.T) {
	store := newFakeStore()
	session := newTestSession(store)
	c := criticalCandidate()
	dec := reminder.Decide(c, dispatchNow)
	d := newTestDispatcher()

	first := d.Dispatch(context.Background(), session, c, dec)
	second := d.Dispatch(context.Background(), session, c, dec)

	assert.True(t, first.Sent)
	assert.False(t, second.Sent)
	assert.False(t, second.AlertCreated)
	assert.Len(t, store.records, 1)
	assert.Len(t, store.alerts, 1)
	assert.Len(t, store.messages, 1)
}

func TestDispatch_NotDueWritesOnlyDetectionAndAlert(t *testing.T) {
	store := newFakeStore()
	session := newTestSession(store)
	c := criticalCandidate()
	dec := reminder.Decision{Tier: reminder.TierCritical, ShouldSend: false, EffectiveIntervalHours: 24}

	out := newTestDispatcher().Dispatch(context.Background(), session, c, dec)

	assert.False(t, out.Sent)
	assert.True(t, out.AlertCreated)
	assert.Contains(t, store.missedAt, int64(42))
	assert.Empty(t, store.records)
	assert.Empty(t, store.messages)
	assert.Empty(t, store.audits)
	assert.NotContains(t, store.lastSent, int64(42))
}

func TestDispatch_MissedMarkerWrittenOnce(t *testing.T) {
	store := newFakeStore()
	session := newTestSession(store)
	c := criticalCandidate()
	earlier := dispatchNow.Add(-48 * time.Hour)
	c.LastMissedCheckinAt = sql.NullTime{Time: earlier, Valid: true}

	newTestDispatcher().Dispatch(context.Background(), session, c, reminder.Decision{Tier: reminder.TierNormal})

	assert.NotContains(t, store.missedAt, int64(42))
}

func TestDispatch_StepFailuresDoNotStopLaterSteps(t *testing.T) {
	store := newFakeStore()
	store.errs["MarkMissedCheckin"] = errors.New("deadlock detected")
	store.errs["OpenStaffAlert"] = errors.New("connection reset")
	store.errs["InsertReminderRecord"] = errors.New("disk full")
	store.errs["InsertAuditEvent"] = errors.New("permission denied")
	session := newTestSession(store)
	c := criticalCandidate()

	out := newTestDispatcher().Dispatch(context.Background(), session, c, reminder.Decide(c, dispatchNow))

	assert.True(t, out.Sent)
	assert.False(t, out.AlertCreated)
	assert.Nil(t, out.Err)
	assert.Len(t, store.messages, 1)
}

func TestDispatch_BookkeepingFailureIsFlagged(t *testing.T) {
	store := newFakeStore()
	store.errs["ClaimReminderSlot"] = errors.New("statement timeout")
	session := newTestSession(store)
	c := criticalCandidate()
	log, buf := testLogger()
	d := NewReminderDispatcher(fixedClock(dispatchNow), log)

	out := d.Dispatch(context.Background(), session, c, reminder.Decide(c, dispatchNow))

	assert.True(t, out.Sent)
	assert.True(t, out.Flagged)
	require.Error(t, out.Err)
	require.Len(t, store.records, 1)
	assert.Equal(t, reminder.RecordStatusFlagged, store.records[0].Status)
	assert.Equal(t, true, store.audits[0].Details["flagged"])
	assert.Contains(t, buf.String(), `"step":"bookkeeping"`)
	assert.Contains(t, buf.String(), `"flagged":true`)
}

func TestDispatch_NoStaffSenderSkipsMessageOnly(t *testing.T) {
	store := newFakeStore()
	store.sender = nil
	session := newTestSession(store)
	d := newTestDispatcher()

	c1 := criticalCandidate()
	c2 := criticalCandidate()
	c2.StudentID = 43

	out1 := d.Dispatch(context.Background(), session, c1, reminder.Decide(c1, dispatchNow))
	out2 := d.Dispatch(context.Background(), session, c2, reminder.Decide(c2, dispatchNow))

	assert.True(t, out1.Sent)
	assert.True(t, out2.Sent)
	assert.Empty(t, store.messages)
	assert.Len(t, store.records, 2)
	assert.Equal(t, 1, store.senderHits, "missing sender is resolved once per session")
}

func TestDispatch_MissingOptionalTablesAreSkipped(t *testing.T) {
	store := newFakeStore()
	store.caps = reminder.Capabilities{Reminders: true}
	session := newTestSession(store)
	c := criticalCandidate()

	out := newTestDispatcher().Dispatch(context.Background(), session, c, reminder.Decide(c, dispatchNow))

	assert.True(t, out.Sent)
	assert.False(t, out.AlertCreated)
	assert.Empty(t, store.alerts)
	assert.Empty(t, store.records)
	assert.Empty(t, store.audits)
	assert.Empty(t, store.messages)
	assert.Equal(t, 0, store.senderHits)
}

func TestDispatch_CompletesAfterClaimEvenIfCancelled(t *testing.T) {
	store := newFakeStore()
	session := newTestSession(store)
	c := criticalCandidate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newTestDispatcher().Dispatch(ctx, session, c, reminder.Decide(c, dispatchNow))

	assert.True(t, out.Sent)
	assert.False(t, out.AlertCreated, "pre-claim writes observe cancellation")
	assert.Len(t, store.records, 1)
	assert.Len(t, store.messages, 1)
}
