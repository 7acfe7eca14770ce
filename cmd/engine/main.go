package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/app"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/tenant"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/config"
	idb "github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/database"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/events"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/httpserver"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/logger"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/metrics"
	"github.com/AJ-pmn09/CalmCloud-sub002/internal/infra/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logger.Component("main")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log.WithFields(logrus.Fields{
		"tenants":     len(cfg.Tenants),
		"environment": cfg.Environment,
		"run_once":    cfg.RunOnce,
	}).Info("Configuration loaded")

	// Each run builds, uses and releases its own registry.
	openRegistry := func(ctx context.Context) (tenant.Registry, error) {
		return idb.NewPostgresTenantRegistry(cfg.Tenants, cfg.QueryTimeout)
	}

	// Observers
	lastRun := &httpserver.LastRun{}
	observers := []app.RunObserver{lastRun, metrics.NewObserver(prometheus.DefaultRegisterer)}
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL, logger.Component("nats"))
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, run summaries will not be published")
		} else {
			defer nc.Drain()
			observers = append(observers, events.NewSummaryPublisher(nc, cfg.NatsSubject, logger.Component("events")))
			log.WithField("subject", cfg.NatsSubject).Info("Run summary publishing enabled")
		}
	}

	engine := app.NewReminderEngine(openRegistry, app.EngineOptions{
		TenantConcurrency: cfg.TenantConcurrency,
		TenantTimeout:     cfg.TenantTimeout,
		Location:          cfg.Location,
	}, logger.Component("engine"), observers...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunOnce {
		runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
		_, err := engine.RunOnce(runCtx)
		cancel()
		if err != nil {
			log.WithError(err).Error("Reminder run failed")
			os.Exit(1)
		}
		return
	}

	var server *http.Server
	if cfg.HTTPAddr != "" {
		server = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpserver.NewRouter(lastRun, metrics.Handler()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("Starting ops HTTP server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Ops HTTP server stopped")
			}
		}()
	}

	reminderScheduler := scheduler.NewReminderScheduler(engine, logger.Component("scheduler"), cfg.CronSpecReminder, cfg.RunTimeout, cfg.Location)
	if err := reminderScheduler.Start(); err != nil {
		log.Fatalf("Could not start reminder scheduler: %v", err)
	}

	<-ctx.Done() // Block until a signal is received

	log.Info("Shutting down application...")
	reminderScheduler.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Ops HTTP server shutdown error")
		}
	}
	log.Info("Application shut down gracefully.")
}
