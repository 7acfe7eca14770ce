package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/config"
)

// PostgresTenantRegistry opens one pool per tenant on first use and closes them all on Close.
// It is built fresh for every run.
type PostgresTenantRegistry struct {
	tenants      []config.TenantConfig
	queryTimeout time.Duration

	mu    sync.Mutex
	pools map[string]*sql.DB
}

func NewPostgresTenantRegistry(tenants []config.TenantConfig, queryTimeout time.Duration) (*PostgresTenantRegistry, error) {
	if len(tenants) == 0 {
		return nil, fmt.Errorf("no tenants configured")
	}
	return &PostgresTenantRegistry{
		tenants:      tenants,
		queryTimeout: queryTimeout,
		pools:        make(map[string]*sql.DB),
	}, nil
}

func (r *PostgresTenantRegistry) Names() []string {
	names := make([]string, 0, len(r.tenants))
	for _, t := range r.tenants {
		names = append(names, t.Name)
	}
	return names
}

func (r *PostgresTenantRegistry) Acquire(ctx context.Context, name string) (reminder.Store, error) {
	var dsn string
	for _, t := range r.tenants {
		if t.Name == name {
			dsn = t.DatabaseURL
			break
		}
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTenant, name)
	}

	r.mu.Lock()
	db, ok := r.pools[name]
	r.mu.Unlock()
	if !ok {
		pingCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
		var err error
		db, err = NewPostgresConnection(pingCtx, dsn)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", name, err)
		}
		r.mu.Lock()
		if existing, raced := r.pools[name]; raced {
			db.Close()
			db = existing
		} else {
			r.pools[name] = db
		}
		r.mu.Unlock()
	}
	return NewPostgresReminderStore(db, r.queryTimeout), nil
}

func (r *PostgresTenantRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, db := range r.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing tenant %s: %w", name, err))
		}
	}
	r.pools = make(map[string]*sql.DB)
	return errors.Join(errs...)
}
