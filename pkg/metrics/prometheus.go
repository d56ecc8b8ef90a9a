// Package metrics provides Prometheus metrics for the overtime service.
package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Fetch outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
)

// Manager manages all Prometheus metrics for the overtime service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics
	computations       *prometheus.CounterVec
	computationLatency *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec
	recordsEmitted     prometheus.Gauge
	employeesOvertime  prometheus.Gauge
	employeesUndertime prometheus.Gauge
	requiredHours      prometheus.Gauge

	// Collaborator Metrics
	sourceFetches       *prometheus.CounterVec
	sourceFetchDuration *prometheus.HistogramVec
	sourceBreakerState  *prometheus.GaugeVec
	rosterFetches       *prometheus.CounterVec
	rosterSize          prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "overtime",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.computations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("computations_total"),
			Help:        "Total number of overtime computations by mode and fallback use",
			ConstLabels: labels,
		},
		[]string{"mode", "fallback"},
	)

	m.computationLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("computation_duration_milliseconds"),
			Help:        "End-to-end overtime computation latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.fallbacks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("fallback_total"),
			Help:        "Total number of computations answered from the static fallback dataset",
			ConstLabels: labels,
		},
		[]string{"reason"},
	)

	m.recordsEmitted = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("records_emitted"),
		Help:        "Number of records in the last computation",
		ConstLabels: labels,
	})

	m.employeesOvertime = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("employees_with_overtime"),
		Help:        "People above their required hours in the last summary",
		ConstLabels: labels,
	})

	m.employeesUndertime = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("employees_with_undertime"),
		Help:        "People below their required hours in the last summary",
		ConstLabels: labels,
	})

	m.requiredHours = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("required_hours"),
		Help:        "Required hours of the default window",
		ConstLabels: labels,
	})

	m.sourceFetches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("source_fetch_total"),
			Help:        "Total number of worklog source fetches by outcome",
			ConstLabels: labels,
		},
		[]string{"source", "outcome"},
	)

	m.sourceFetchDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("source_fetch_duration_milliseconds"),
			Help:        "Worklog source fetch latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"source"},
	)

	m.sourceBreakerState = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("source_breaker_state"),
			Help:        "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
			ConstLabels: labels,
		},
		[]string{"source"},
	)

	m.rosterFetches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("roster_fetch_total"),
			Help:        "Total number of roster fetches by outcome",
			ConstLabels: labels,
		},
		[]string{"provider", "outcome"},
	)

	m.rosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("roster_size"),
		Help:        "Number of people in the last roster answer",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Total number of errors by type",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("error_latency_milliseconds"),
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Business Metrics Functions.

// RecordComputation counts one overtime computation.
func RecordComputation(mode string, usedFallback bool) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.computations.WithLabelValues(mode, strconv.FormatBool(usedFallback)).Inc()
}

// RecordComputationLatency records end-to-end computation latency.
func RecordComputationLatency(mode string, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.computationLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordFallback counts a computation served from the fallback dataset.
func RecordFallback(reason string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.fallbacks.WithLabelValues(reason).Inc()
}

// UpdateRecordsEmitted sets the record count of the last computation.
func UpdateRecordsEmitted(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.recordsEmitted.Set(float64(count))
}

// UpdateRequiredHours sets the required hours of the default window.
func UpdateRequiredHours(hours float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.requiredHours.Set(hours)
}

// UpdateSummary sets the overtime and undertime head counts.
func UpdateSummary(withOvertime, withUndertime int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.employeesOvertime.Set(float64(withOvertime))
	globalManager.employeesUndertime.Set(float64(withUndertime))
}

// Collaborator Metrics Functions.

// RecordSourceFetch counts a worklog source fetch and observes its latency.
func RecordSourceFetch(source string, available bool, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.sourceFetches.WithLabelValues(source, outcome(available)).Inc()
	globalManager.sourceFetchDuration.WithLabelValues(source).Observe(latencyMs)
}

// UpdateSourceBreakerState sets the breaker state gauge of a source.
func UpdateSourceBreakerState(source string, state int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.sourceBreakerState.WithLabelValues(source).Set(float64(state))
}

// RecordRosterFetch counts a roster fetch and, when available, its size.
func RecordRosterFetch(provider string, available bool, size int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.rosterFetches.WithLabelValues(provider, outcome(available)).Inc()
	if available {
		globalManager.rosterSize.Set(float64(size))
	}
}

func outcome(available bool) string {
	if available {
		return OutcomeOK
	}
	return OutcomeUnavailable
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
