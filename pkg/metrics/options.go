package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option tunes a Manager. Naming, bucket, label and registry options are
// read once by NewManager; enabled and refresh interval are read at run
// time, so Configure may apply them to the global manager after init.
type Option func(*Manager)

// WithNamespace replaces the "overtime" namespace. Empty keeps it.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem inserts a subsystem between namespace and name.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithMetricPrefix prepends prefix to every metric name.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.metricPrefix = prefix
		}
	}
}

// WithHistogramBuckets overrides prometheus.DefBuckets for the latency
// histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithCustomLabels attaches constant labels to every metric.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		for k, v := range labels {
			m.customLabels[k] = v
		}
	}
}

// WithPrometheusRegistry registers the metrics on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithMetricsEnabled switches recording on or off. A disabled manager keeps
// its collectors registered but the package-level helpers leave them alone.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled.Store(enabled)
	}
}

// WithRefreshInterval sets how often the process samples its runtime
// gauges. Non-positive values keep the current interval.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval.Store(int64(interval))
		}
	}
}

// Configure applies run-time options to the global manager.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt(globalManager)
	}
}

// Enabled reports whether the global manager records.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// RefreshInterval is the sampling period of the global manager's runtime
// gauges.
func RefreshInterval() time.Duration {
	return time.Duration(globalManager.refreshInterval.Load())
}
