// internal/app/engine.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Fatal run errors. Everything else degrades to a per-tenant or per-student skip.
var ErrNoTenants = errors.New("no tenants configured")
var ErrRegistryUnavailable = errors.New("tenant registry unavailable")

// RegistryOpener builds the tenant registry for a single run.
type RegistryOpener func(ctx context.Context) (tenant.Registry, error)

// RunObserver receives every completed run summary.
type RunObserver interface {
	ObserveRun(summary *reminder.RunSummary)
}

// ReminderService is what triggers depend on.
type ReminderService interface {
	RunOnce(ctx context.Context) (*reminder.RunSummary, error)
}

// EngineOptions tunes a run.
type EngineOptions struct {
	TenantConcurrency int
	TenantTimeout     time.Duration
	Location          *time.Location
	Clock             func() time.Time
}

// ReminderEngine is the orchestrator: tenants → scan → decide → dispatch → summarize.
// It keeps no state between runs.
type ReminderEngine struct {
	openRegistry RegistryOpener
	scanner      *CheckinGapScanner
	dispatcher   *ReminderDispatcher
	decide       func(*reminder.Candidate, time.Time) reminder.Decision
	observers    []RunObserver
	opts         EngineOptions
	logger       *logrus.Entry
}

func NewReminderEngine(openRegistry RegistryOpener, opts EngineOptions, logger *logrus.Entry, observers ...RunObserver) *ReminderEngine {
	if opts.TenantConcurrency < 1 {
		opts.TenantConcurrency = 1
	}
	if opts.TenantTimeout <= 0 {
		opts.TenantTimeout = 2 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &ReminderEngine{
		openRegistry: openRegistry,
		scanner:      NewCheckinGapScanner(logger.WithField("component", "scanner")),
		dispatcher:   NewReminderDispatcher(opts.Clock, logger.WithField("component", "dispatcher")),
		decide:       reminder.Decide,
		observers:    observers,
		opts:         opts,
		logger:       logger,
	}
}

// RunOnce performs one complete pass over every tenant. An error is returned only
// when the registry cannot be built or has no tenants.
func (e *ReminderEngine) RunOnce(ctx context.Context) (*reminder.RunSummary, error) {
	started := e.opts.Clock()
	summary := &reminder.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Tenants:   []reminder.TenantReport{},
	}
	log := e.logger.WithField("run_id", summary.RunID)
	log.Info("Starting reminder run")

	registry, err := e.openRegistry(ctx)
	if err != nil {
		log.WithError(err).Error("Could not build tenant registry, aborting run")
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.WithError(err).Warn("Error releasing tenant registry")
		}
	}()

	names := registry.Names()
	if len(names) == 0 {
		log.Error("No tenants configured, aborting run")
		return nil, ErrNoTenants
	}

	asOf := started.In(e.opts.Location)
	reports := make([]reminder.TenantReport, len(names))

	var g errgroup.Group
	g.SetLimit(e.opts.TenantConcurrency)
	for i, name := range names {
		i, name := i, name
		if ctx.Err() != nil {
			reports[i] = reminder.TenantReport{Tenant: name, Outcome: reminder.OutcomeCancelled, Error: ctx.Err().Error()}
			continue
		}
		g.Go(func() error {
			reports[i] = e.runTenant(ctx, registry, name, summary.RunID, asOf, log)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range reports {
		summary.Add(r)
	}
	summary.DurationMs = e.opts.Clock().Sub(started).Milliseconds()

	log.WithFields(logrus.Fields{
		"tenants_scanned":  summary.TenantsScanned,
		"tenants_failed":   summary.TenantsFailed,
		"candidates_found": summary.CandidatesFound,
		"reminders_sent":   summary.RemindersSent,
		"alerts_created":   summary.AlertsCreated,
		"flagged_sends":    summary.FlaggedSends,
		"duration_ms":      summary.DurationMs,
	}).Info("Reminder run complete")

	for _, o := range e.observers {
		o.ObserveRun(summary)
	}
	return summary, nil
}

// runTenant never returns an error: every failure is folded into the report.
func (e *ReminderEngine) runTenant(ctx context.Context, registry tenant.Registry, name, runID string, asOf time.Time, runLog *logrus.Entry) (report reminder.TenantReport) {
	report = reminder.TenantReport{Tenant: name, Outcome: reminder.OutcomeScanned, SentByTier: map[reminder.Tier]int{}}
	log := runLog.WithField("tenant", name)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Tenant pass panicked, skipping tenant")
			report.Outcome = reminder.OutcomeUnavailable
			report.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, e.opts.TenantTimeout)
	defer cancel()

	fail := func(err error, msg string) reminder.TenantReport {
		report.Outcome = classifyTenantError(ctx, tctx, err)
		report.Error = err.Error()
		log.WithError(err).WithField("outcome", report.Outcome).Error(msg)
		return report
	}

	store, err := registry.Acquire(tctx, name)
	if err != nil {
		return fail(err, "Tenant unavailable, skipping for this run")
	}

	caps, err := store.Probe(tctx)
	if err != nil {
		return fail(err, "Tenant schema probe failed, skipping for this run")
	}

	session := NewTenantSession(name, runID, store, caps)
	candidates, err := e.scanner.FindCandidates(tctx, session, asOf)
	if err != nil {
		return fail(err, "Tenant scan failed, skipping for this run")
	}
	if session.SchemaIncompatible {
		report.Outcome = reminder.OutcomeSchemaIncompatible
	}
	report.CandidatesFound = len(candidates)

	// Students are processed sequentially to keep dispatch ordering deterministic.
	for _, c := range candidates {
		if tctx.Err() != nil {
			return fail(tctx.Err(), "Tenant pass interrupted between students")
		}

		decision := e.decide(c, e.opts.Clock())
		outcome := e.dispatcher.Dispatch(tctx, session, c, decision)
		if outcome.AlertCreated {
			report.AlertsCreated++
		}
		if outcome.Sent {
			report.RemindersSent++
			report.SentByTier[outcome.Tier]++
		}
		if outcome.Flagged {
			report.FlaggedSends++
		}
	}

	log.WithFields(logrus.Fields{
		"outcome":        report.Outcome,
		"candidates":     report.CandidatesFound,
		"reminders_sent": report.RemindersSent,
		"alerts_created": report.AlertsCreated,
	}).Info("Tenant pass complete")
	return report
}

func classifyTenantError(runCtx, tenantCtx context.Context, err error) reminder.TenantOutcome {
	if runCtx.Err() != nil {
		return reminder.OutcomeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(tenantCtx.Err(), context.DeadlineExceeded) {
		return reminder.OutcomeTimedOut
	}
	return reminder.OutcomeUnavailable
}
