package tenant

import (
	"context"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
)

// Registry enumerates configured tenants and hands out a Store per tenant.
// A Registry is owned by one run (or one process) and released with Close.
type Registry interface {
	Names() []string
	// Acquire returns a live store for the named tenant. Errors mean the tenant is
	// unavailable for this run.
	Acquire(ctx context.Context, name string) (reminder.Store, error)
	Close() error
}
