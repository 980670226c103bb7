package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/platform/envutil"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

// Metrics is a small Prometheus text-format registry. All methods are safe on
// a nil receiver so call sites need no enabled check.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	submissions *CounterVec
	transitions *CounterVec
	reminders   *CounterVec
	sweeps      *CounterVec

	dbStats *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current is the process registry, or nil when metrics are disabled.
func Current() *Metrics { return instance }

// Init builds the process registry once when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		if !Enabled() {
			return
		}
		instance = NewMetrics()
		if log != nil {
			log.Info("Metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("studyflow_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("studyflow_api_request_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight: NewGauge("studyflow_api_inflight", "HTTP requests in flight."),
		submissions: NewCounterVec("studyflow_submissions_total", "Activity submissions by phase and outcome.", []string{"phase", "outcome"}),
		transitions: NewCounterVec("studyflow_phase_transitions_total", "Phase changes caused by submissions.", []string{"from", "to"}),
		reminders:   NewCounterVec("studyflow_reminders_total", "Reminder attempts by kind and status.", []string{"kind", "status"}),
		sweeps:      NewCounterVec("studyflow_reminder_sweeps_total", "Reminder sweeps by result.", []string{"result"}),
		dbStats:     NewGaugeVec("studyflow_db_pool", "database/sql pool statistics.", []string{"stat"}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(strings.ToUpper(method), route, status)
	m.apiLatency.Observe(dur.Seconds(), strings.ToUpper(method), route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveSubmission counts one submission. outcome is "recorded",
// "duplicate" or an error code such as "out_of_window".
func (m *Metrics) ObserveSubmission(phase, outcome string) {
	if m != nil {
		m.submissions.Inc(phase, outcome)
	}
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m != nil {
		m.transitions.Inc(from, to)
	}
}

func (m *Metrics) ObserveReminder(kind, status string) {
	if m != nil {
		m.reminders.Inc(kind, status)
	}
}

func (m *Metrics) ObserveSweep(result string) {
	if m != nil {
		m.sweeps.Inc(result)
	}
}

func (m *Metrics) SubmissionCount(phase, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.submissions.Value(phase, outcome)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.submissions, m.transitions, m.reminders, m.sweeps,
		m.dbStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// StartDBCollector samples pool statistics until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}
