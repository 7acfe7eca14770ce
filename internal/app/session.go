// internal/app/session.go
package app

import (
	"context"
	"errors"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
	idb "github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/database" // Alias for DB errors
)

// TenantSession is a tenant's state for the duration of one run: its store, the
// capabilities probed at the start of the pass and the lazily resolved staff sender.
// A session is used by exactly one worker.
type TenantSession struct {
	Name  string
	RunID string
	Store reminder.Store
	Caps  reminder.Capabilities

	// SchemaIncompatible is set by the scanner when the tenant cannot support reminders.
	SchemaIncompatible bool

	sender         *reminder.Sender
	senderResolved bool
}

func NewTenantSession(name, runID string, store reminder.Store, caps reminder.Capabilities) *TenantSession {
	return &TenantSession{
		Name:  name,
		RunID: runID,
		Store: store,
		Caps:  caps,
	}
}

// StaffSender resolves the message sender once per session. A missing sender is
// cached too, so a tenant without staff users is only queried once per run.
func (t *TenantSession) StaffSender(ctx context.Context) (*reminder.Sender, error) {
	if t.senderResolved {
		if t.sender == nil {
			return nil, idb.ErrSenderNotFound
		}
		return t.sender, nil
	}

	sender, err := t.Store.FindStaffSender(ctx)
	if err != nil {
		if errors.Is(err, idb.ErrSenderNotFound) {
			t.senderResolved = true
		}
		return nil, err
	}
	t.sender = sender
	t.senderResolved = true
	return sender, nil
}
