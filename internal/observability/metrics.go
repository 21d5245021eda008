package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// Metrics owns a private registry. A nil *Metrics is valid and records
// nothing, so callers never need to branch on whether metrics are wired.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	chainFailures prometheus.Counter
	statusEvents  *prometheus.CounterVec

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	approvals *prometheus.CounterVec

	redisUp prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferag_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ferag_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ferag_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferag_pipeline_stage_runs_total",
			Help: "Pipeline stage executions by stage/status.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ferag_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage wall time in seconds by stage/status.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400, 3600},
		}, []string{"stage", "status"}),
		chainFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ferag_pipeline_chain_failures_total",
			Help: "Cycle chains that ended in the failure handler.",
		}),
		statusEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferag_status_events_total",
			Help: "Status events published by status.",
		}, []string{"status"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferag_llm_requests_total",
			Help: "Completion calls by purpose/status.",
		}, []string{"purpose", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ferag_llm_request_duration_seconds",
			Help:    "Completion latency in seconds by purpose.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"purpose"}),
		approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferag_cycle_decisions_total",
			Help: "Cycle approvals and rejections by outcome.",
		}, []string{"decision", "status"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ferag_redis_up",
			Help: "1 when the last Redis ping succeeded.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.stageRuns, m.stageDuration, m.chainFailures, m.statusEvents,
		m.llmRequests, m.llmLatency,
		m.approvals, m.redisUp,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageRuns.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage, status).Observe(dur.Seconds())
}

func (m *Metrics) IncChainFailure() {
	if m == nil {
		return
	}
	m.chainFailures.Inc()
}

func (m *Metrics) IncStatusEvent(status string) {
	if m == nil {
		return
	}
	m.statusEvents.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveLLM(purpose string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmRequests.WithLabelValues(purpose, status).Inc()
	m.llmLatency.WithLabelValues(purpose).Observe(dur.Seconds())
}

func (m *Metrics) IncDecision(decision string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.approvals.WithLabelValues(decision, status).Inc()
}

// RegisterDB exports database/sql pool statistics of db.
func (m *Metrics) RegisterDB(db *gorm.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return m.registry.Register(collectors.NewDBStatsCollector(sqlDB, name))
}

// StartRedisCollector pings rdb every interval and records the outcome.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *goredis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
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
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
