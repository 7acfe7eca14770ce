package metrics

import (
	"net/http"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Observer turns run summaries into Prometheus metrics.
type Observer struct {
	runs          *prometheus.CounterVec
	tenants       *prometheus.CounterVec
	candidates    *prometheus.CounterVec
	remindersSent *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	flagged       *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRun       prometheus.Gauge
}

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_runs_total",
				Help: "Total number of completed reminder runs",
			},
			[]string{"result"},
		),
		tenants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_tenants_total",
				Help: "Tenant passes by outcome",
			},
			[]string{"outcome"},
		),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_candidates_total",
				Help: "Students found by the check-in gap scanner",
			},
			[]string{"tenant"},
		),
		remindersSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminders_sent_total",
				Help: "Reminders sent per tenant and tier",
			},
			[]string{"tenant", "tier"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_staff_alerts_total",
				Help: "Urgent staff alerts opened",
			},
			[]string{"tenant"},
		),
		flagged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_flagged_sends_total",
				Help: "Sends whose last_reminder_sent_at update failed",
			},
			[]string{"tenant"},
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reminder_run_duration_seconds",
			Help:    "Wall time of a reminder run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reminder_last_run_timestamp_seconds",
			Help: "Start time of the most recent reminder run",
		}),
	}
	reg.MustRegister(o.runs, o.tenants, o.candidates, o.remindersSent, o.alerts, o.flagged, o.runDuration, o.lastRun)
	return o
}

func (o *Observer) ObserveRun(s *reminder.RunSummary) {
	result := "ok"
	if s.TenantsFailed > 0 {
		result = "partial"
	}
	o.runs.WithLabelValues(result).Inc()
	o.runDuration.Observe(float64(s.DurationMs) / 1000)
	o.lastRun.Set(float64(s.StartedAt.Unix()))

	for _, t := range s.Tenants {
		o.tenants.WithLabelValues(string(t.Outcome)).Inc()
		o.candidates.WithLabelValues(t.Tenant).Add(float64(t.CandidatesFound))
		o.alerts.WithLabelValues(t.Tenant).Add(float64(t.AlertsCreated))
		o.flagged.WithLabelValues(t.Tenant).Add(float64(t.FlaggedSends))
		for tier, n := range t.SentByTier {
			o.remindersSent.WithLabelValues(t.Tenant, string(tier)).Add(float64(n))
		}
	}
}

// Handler returns the Prometheus metrics HTTP handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
