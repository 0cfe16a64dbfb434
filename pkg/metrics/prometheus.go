// Package metrics provides Prometheus metrics for the SKAN demo service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// conversionValueBuckets spans the 6-bit conversion value space in steps of 8.
var conversionValueBuckets = prometheus.LinearBuckets(0, 8, 8) //nolint:gochecknoglobals // immutable bucket layout

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring
	simulationsTotal prometheus.Counter
	conversionValue  prometheus.Histogram
	revenueTier      *prometheus.CounterVec
	unknownEvents    prometheus.Counter
	clampedTotal     prometheus.Counter

	// Ledger
	ledgerRecorded prometheus.Counter
	ledgerDropped  *prometheus.CounterVec
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	workerCount    prometheus.Gauge
	workerLatency  prometheus.Histogram

	// Sessions
	sessionsIssued      prometheus.Counter
	sessionsRejected    *prometheus.CounterVec
	sessionRegistrySize prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec
	panicsRecovered     prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skan",
		subsystem:        "demo",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.simulationsTotal = m.counter("simulations_total", "Total number of conversion value simulations scored")
	m.conversionValue = m.histogram("conversion_value", "Distribution of computed conversion values (0-63)", conversionValueBuckets)
	m.revenueTier = m.counterVec("revenue_tier_total", "Simulations by matched revenue tier", "tier")
	m.unknownEvents = m.counter("unknown_events_total", "Event names submitted that carry no weight")
	m.clampedTotal = m.counter("clamped_total", "Simulations whose raw score exceeded the 6-bit maximum")

	m.ledgerRecorded = m.counter("ledger_recorded_total", "Simulations recorded in the in-memory ledger")
	m.ledgerDropped = m.counterVec("ledger_dropped_total", "Simulations not recorded in the ledger", "reason")
	m.queueSize = m.gauge("queue_size", "Current number of simulations waiting in the ledger queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum ledger queue capacity")
	m.workerCount = m.gauge("worker_count", "Number of ledger workers")
	m.workerLatency = m.histogram("worker_latency_milliseconds", "Ledger record latency in milliseconds", m.histogramBuckets)

	m.sessionsIssued = m.counter("sessions_issued_total", "Session tokens issued by the index page")
	m.sessionsRejected = m.counterVec("sessions_rejected_total", "Session checks that failed", "reason")
	m.sessionRegistrySize = m.gauge("session_registry_size", "Session keys currently registered")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.panicsRecovered = m.counter("panics_recovered_total", "Handler panics converted to 500 responses")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSimulation records one scored simulation.
func (m *Manager) RecordSimulation(conversionValue int, tier string, unknownEvents int, clamped bool) {
	m.simulationsTotal.Inc()
	m.conversionValue.Observe(float64(conversionValue))
	m.revenueTier.WithLabelValues(tier).Inc()
	if unknownEvents > 0 {
		m.unknownEvents.Add(float64(unknownEvents))
	}
	if clamped {
		m.clampedTotal.Inc()
	}
}

// RecordSimulation records one scored simulation on the global manager.
func RecordSimulation(conversionValue int, tier string, unknownEvents int, clamped bool) {
	globalManager.RecordSimulation(conversionValue, tier, unknownEvents, clamped)
}

// RecordLedgerRecorded increments the recorded-simulations counter.
func RecordLedgerRecorded() { globalManager.ledgerRecorded.Inc() }

// RecordLedgerDropped increments the dropped-simulations counter for reason.
func RecordLedgerDropped(reason string) { globalManager.ledgerDropped.WithLabelValues(reason).Inc() }

// UpdateQueueSize sets the current ledger queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the ledger queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateWorkerCount sets the ledger worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerLatency observes a ledger record latency.
func RecordWorkerLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordSessionIssued increments the issued-sessions counter.
func RecordSessionIssued() { globalManager.sessionsIssued.Inc() }

// RecordSessionRejected increments the rejected-sessions counter for reason.
func RecordSessionRejected(reason string) { globalManager.sessionsRejected.WithLabelValues(reason).Inc() }

// UpdateSessionRegistrySize sets the session registry gauge.
func UpdateSessionRegistrySize(size int64) { globalManager.sessionRegistrySize.Set(float64(size)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error for endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordPanicRecovered increments the recovered-panics counter.
func RecordPanicRecovered() { globalManager.panicsRecovered.Inc() }

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
