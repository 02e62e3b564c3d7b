// Package metrics exposes Prometheus metrics for template checks and
// deployments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for executions.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Config configures the metrics collector.
type Config struct {
	Enabled   bool
	Namespace string
	Buckets   []float64 // histogram buckets, build-sized defaults if empty
}

// defaultBuckets covers image builds that take seconds to many minutes.
var defaultBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}

// =============================================================================
// Metrics
// =============================================================================

// Metrics records template activity on a private registry. A disabled
// instance accepts every call and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	checks            *prometheus.CounterVec
	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	activeExecutions  prometheus.Gauge
}

// New creates a metrics collector.
func New(cfg Config) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "template_checks_total",
				Help:      "Total number of template applicability checks",
			},
			[]string{"template", "result"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "template_executions_total",
				Help:      "Total number of template executions",
			},
			[]string{"template", "strategy", "outcome"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "template_execution_duration_seconds",
				Help:      "Duration of template executions in seconds",
				Buckets:   buckets,
			},
			[]string{"template", "outcome"},
		),
		activeExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "template_executions_active",
				Help:      "Current number of running template executions",
			},
		),
	}

	registry.MustRegister(
		m.checks,
		m.executions,
		m.executionDuration,
		m.activeExecutions,
	)

	return m
}

// Enabled reports whether metrics are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordCheck records the result of one applicability check.
func (m *Metrics) RecordCheck(template string, matched bool) {
	if !m.Enabled() {
		return
	}
	result := "miss"
	if matched {
		result = "match"
	}
	m.checks.WithLabelValues(template, result).Inc()
}

// ExecutionStarted marks an execution as in flight.
func (m *Metrics) ExecutionStarted() {
	if !m.Enabled() {
		return
	}
	m.activeExecutions.Inc()
}

// RecordExecution records a finished execution.
func (m *Metrics) RecordExecution(template, strategy string, failed bool, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	outcome := OutcomeSuccess
	if failed {
		outcome = OutcomeFailure
	}
	m.executions.WithLabelValues(template, strategy, outcome).Inc()
	m.executionDuration.WithLabelValues(template, outcome).Observe(duration.Seconds())
	m.activeExecutions.Dec()
}

// Handler returns the HTTP handler serving the registry. A disabled
// instance serves 404.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if !m.Enabled() {
		return nil
	}
	return m.registry
}
