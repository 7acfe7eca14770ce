package events

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subject, f.data = subject, data
	return nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSummaryPublisher_PublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	p := NewSummaryPublisher(conn, "reminders.runs.completed", quietLogger())

	p.ObserveRun(&reminder.RunSummary{RunID: "run-1", RemindersSent: 3, Tenants: []reminder.TenantReport{}})

	assert.Equal(t, "reminders.runs.completed", conn.subject)
	var got reminder.RunSummary
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.RemindersSent)
}

func TestSummaryPublisher_BrokerErrorIsSwallowed(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := NewSummaryPublisher(conn, "reminders.runs.completed", quietLogger())

	assert.NotPanics(t, func() {
		p.ObserveRun(&reminder.RunSummary{RunID: "run-2"})
	})
	assert.Nil(t, conn.data)
}
