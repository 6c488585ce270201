// Package middleware provides cross-cutting concerns for the
// annotation pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-verdict/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It covers the two hot paths of a run: completion
// traffic against the LLM backend and annotation outcomes per verdict.
type PrometheusMetrics struct {
	completionRequests *prometheus.CounterVec
	completionTokens   *prometheus.CounterVec
	completionLatency  *prometheus.HistogramVec
	annotationsTotal   *prometheus.CounterVec
	runGauges          *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and
// registers all metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		completionRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completion_requests_total",
				Help: "Total number of completion requests sent to LLM backends.",
			},
			[]string{"model", "status"},
		),
		completionTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completion_tokens_total",
				Help: "Total number of tokens exchanged with LLM backends.",
			},
			[]string{"model", "direction"},
		),
		completionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "completion_request_duration_seconds",
				Help:    "Latency of completion requests to LLM backends.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "status"},
		),
		annotationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annotations_total",
				Help: "Total number of statements annotated, by resulting verdict.",
			},
			[]string{"verdict", "fallback"},
		),
		runGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annotation_run_state",
				Help: "Current state values for the active annotation run.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// request latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case "completion_request":
		pm.completionLatency.WithLabelValues(
			labels["model"], labels["status"],
		).Observe(duration.Seconds())
	default:
		pm.completionLatency.WithLabelValues(operation, "success").Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by
// incrementing Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "completion_requests_total":
		pm.completionRequests.WithLabelValues(
			labels["model"], labels["status"],
		).Add(value)
	case "completion_tokens_total":
		pm.completionTokens.WithLabelValues(
			labels["model"], labels["direction"],
		).Add(value)
	case "annotations_total":
		pm.annotationsTotal.WithLabelValues(
			labels["verdict"], labels["fallback"],
		).Add(value)
	default:
		pm.completionRequests.WithLabelValues(metric, "success").Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// run-level Prometheus gauges.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.runGauges.WithLabelValues(metric).Set(value)
}

// Compile-time verification that PrometheusMetrics implements
// MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
