package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/AJ-pmn09/CalmCloud-sub002/internal/domain/reminder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LastRun keeps the most recent summary for the /runs/last endpoint.
type LastRun struct {
	mu      sync.RWMutex
	summary *reminder.RunSummary
}

func (l *LastRun) ObserveRun(s *reminder.RunSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summary = s
}

func (l *LastRun) Get() *reminder.RunSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.summary
}

// NewRouter builds the ops HTTP surface.
func NewRouter(last *LastRun, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)
	r.Get("/runs/last", func(w http.ResponseWriter, _ *http.Request) {
		s := last.Get()
		if s == nil {
			http.Error(w, "no run completed yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s)
	})
	return r
}
