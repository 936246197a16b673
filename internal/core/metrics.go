package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics records repository operations as Prometheus series.
type PrometheusMetrics struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
}

// NewPrometheusMetrics registers the repository collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flockcore",
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Repository operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flockcore",
			Subsystem: "repository",
			Name:      "operation_duration_seconds",
			Help:      "Repository operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flockcore",
			Subsystem: "repository",
			Name:      "cache_fallbacks_total",
			Help:      "Reads served from the local cache after a remote failure.",
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.durations, m.fallbacks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe implements MetricsRecorder.
func (m *PrometheusMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := statusError
	if success {
		status = statusSuccess
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// CacheFallback implements FallbackRecorder.
func (m *PrometheusMetrics) CacheFallback(operation string) {
	m.fallbacks.WithLabelValues(operation).Inc()
}
