package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadflow"

// Metrics owns a Prometheus registry with the HTTP, ledger and campaign
// collectors. It satisfies the ledger's Recorder interface.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	storeDuration    *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec
	conflictRetries  *prometheus.CounterVec
	unitsIncremented *prometheus.CounterVec

	campaignsTotal *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry. Go runtime and
// process collectors are included when withRuntime is set.
func NewMetrics(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "store_duration_seconds",
				Help:      "Usage store call duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
			},
			[]string{"operation"},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "store_errors_total",
				Help:      "Usage store calls that returned an error",
			},
			[]string{"operation"},
		),
		conflictRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "conflict_retries_total",
				Help:      "Increment attempts retried after a write conflict",
			},
			[]string{"strategy"},
		),
		unitsIncremented: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "units_incremented_total",
				Help:      "Quota units recorded by the usage ledger",
			},
			[]string{"strategy"},
		),
		campaignsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaigns_total",
				Help:      "Campaign submissions by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.storeDuration,
		m.storeErrors,
		m.conflictRetries,
		m.unitsIncremented,
		m.campaignsTotal,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request. An empty path is reported as
// "unknown" to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unknown"
	}
	code := strconv.Itoa(status)
	m.httpRequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
	m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveStore records a usage store call
func (m *Metrics) ObserveStore(operation string, elapsed time.Duration, err error) {
	m.storeDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(operation).Inc()
	}
}

// ConflictRetry counts a retried increment
func (m *Metrics) ConflictRetry(strategy string) {
	m.conflictRetries.WithLabelValues(strategy).Inc()
}

// Incremented adds delta to the recorded units counter
func (m *Metrics) Incremented(strategy string, delta int64) {
	m.unitsIncremented.WithLabelValues(strategy).Add(float64(delta))
}

// CampaignOutcome counts a campaign submission result such as "accepted",
// "quota_exceeded" or "automation_failed".
func (m *Metrics) CampaignOutcome(outcome string) {
	m.campaignsTotal.WithLabelValues(outcome).Inc()
}
