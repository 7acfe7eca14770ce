package app

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/tenant"
	idb "github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var allCaps = reminder.Capabilities{Reminders: true, ReminderLog: true, Audit: true, Alerts: true, Messages: true, Users: true}

// fakeStore is an in-memory reminder.Store with the same guard semantics as the
// Postgres store: conditional claim, insert-if-absent alerts, set-once missed marker.
type fakeStore struct {
	mu sync.Mutex

	caps       reminder.Capabilities
	probeErr   error
	listErr    error
	candidates []*reminder.Candidate
	sender     *reminder.Sender

	lastSent   map[int64]time.Time
	missedAt   map[int64]time.Time
	alerts     []*reminder.StaffAlert
	records    []*reminder.Record
	audits     []*reminder.AuditEvent
	messages   []*reminder.Message
	senderHits int

	// errs forces a step to fail, keyed by method name.
	errs map[string]error

	// onList runs inside ListCandidates, e.g. to cancel the run mid-tenant.
	onList func()
}

func newFakeStore(candidates ...*reminder.Candidate) *fakeStore {
	return &fakeStore{
		caps:       allCaps,
		candidates: candidates,
		sender:     &reminder.Sender{UserID: 900, Role: "counselor"},
		lastSent:   map[int64]time.Time{},
		missedAt:   map[int64]time.Time{},
		errs:       map[string]error{},
	}
}

func (f *fakeStore) Probe(ctx context.Context) (reminder.Capabilities, error) {
	if f.probeErr != nil {
		return reminder.Capabilities{}, f.probeErr
	}
	return f.caps, nil
}

func (f *fakeStore) ListCandidates(ctx context.Context, asOf time.Time) ([]*reminder.Candidate, error) {
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*reminder.Candidate, 0, len(f.candidates))
	for _, c := range f.candidates {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) MarkMissedCheckin(ctx context.Context, studentID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.errs["MarkMissedCheckin"]; err != nil {
		return err
	}
	if _, ok := f.missedAt[studentID]; !ok {
		f.missedAt[studentID] = at
	}
	return nil
}

func (f *fakeStore) OpenStaffAlert(ctx context.Context, alert *reminder.StaffAlert) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := f.errs["OpenStaffAlert"]; err != nil {
		return false, err
	}
	for _, a := range f.alerts {
		if a.StudentID == alert.StudentID && a.Type == alert.Type && a.Status == reminder.AlertStatusActive {
			return false, nil
		}
	}
	alert.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, alert)
	return true, nil
}

func (f *fakeStore) ClaimReminderSlot(ctx context.Context, studentID int64, at time.Time, minGap time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := f.errs["ClaimReminderSlot"]; err != nil {
		return false, err
	}
	if last, ok := f.lastSent[studentID]; ok && last.After(at.Add(-minGap)) {
		return false, nil
	}
	f.lastSent[studentID] = at
	return true, nil
}

func (f *fakeStore) InsertReminderRecord(ctx context.Context, rec *reminder.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.errs["InsertReminderRecord"]; err != nil {
		return err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) InsertAuditEvent(ctx context.Context, ev *reminder.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.errs["InsertAuditEvent"]; err != nil {
		return err
	}
	f.audits = append(f.audits, ev)
	return nil
}

func (f *fakeStore) FindStaffSender(ctx context.Context) (*reminder.Sender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.senderHits++
	if err := f.errs["FindStaffSender"]; err != nil {
		return nil, err
	}
	if f.sender == nil {
		return nil, idb.ErrSenderNotFound
	}
	return f.sender, nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, msg *reminder.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.errs["InsertMessage"]; err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	return nil
}

// fakeRegistry hands out fakeStores by name; names listed in down fail to acquire.
type fakeRegistry struct {
	names  []string
	stores map[string]*fakeStore
	down   map[string]error
	closed bool
}

func (r *fakeRegistry) Names() []string { return r.names }

func (r *fakeRegistry) Acquire(ctx context.Context, name string) (reminder.Store, error) {
	if err := r.down[name]; err != nil {
		return nil, err
	}
	s, ok := r.stores[name]
	if !ok {
		return nil, errors.New("unknown tenant " + name)
	}
	return s, nil
}

func (r *fakeRegistry) Close() error {
	r.closed = true
	return nil
}

func openerFor(r tenant.Registry) RegistryOpener {
	return func(ctx context.Context) (tenant.Registry, error) { return r, nil }
}

type recordingObserver struct {
	summaries []*reminder.RunSummary
}

func (o *recordingObserver) ObserveRun(s *reminder.RunSummary) {
	o.summaries = append(o.summaries, s)
}

func testLogger() (*logrus.Entry, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	return logrus.NewEntry(l), buf
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
