package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/app" // For ReminderService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler triggers one reminder run per cron tick. It adds no state of its
// own: each tick is a fresh RunOnce.
type ReminderScheduler struct {
	cronEngine *cron.Cron
	service    app.ReminderService
	logger     *logrus.Entry
	cronSpec   string
	runTimeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewReminderScheduler(
	service app.ReminderService,
	logger *logrus.Entry,
	cronSpec string, // e.g., "0 * * * *" (hourly)
	runTimeout time.Duration,
	location *time.Location,
) *ReminderScheduler {
	if location == nil {
		location = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(logger)
	return &ReminderScheduler{
		// A slow run makes the next tick skip instead of overlapping in this process.
		cronEngine: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		service:    service,
		logger:     logger,
		cronSpec:   cronSpec,
		runTimeout: runTimeout,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Start registers the reminder job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for reminder run.")
		if err := s.RunNow(); err != nil {
			s.logger.WithError(err).Error("Reminder run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Reminder scheduler started.")
	return nil
}

// RunNow executes a single run bounded by the run timeout and the scheduler's lifetime.
func (s *ReminderScheduler) RunNow() error {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
	defer cancel()

	_, err := s.service.RunOnce(ctx)
	if err != nil && errors.Is(s.baseCtx.Err(), context.Canceled) {
		return fmt.Errorf("run interrupted by shutdown: %w", err)
	}
	return err
}

// Stop cancels any in-flight run between students and waits for it to return.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	s.cancel()
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
