// Package metrics provides Prometheus metrics for the task extraction pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultNamespace = "llm_task_extractor"
)

// Manager owns the pipeline's collectors and the registry they live in
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	tasks              *prometheus.CounterVec
}

// Option configures a Manager
type Option func(*Manager)

// WithNamespace overrides the metric namespace
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithHistogramBuckets overrides the extraction latency buckets
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewManager creates a Manager backed by its own registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "extractions_total",
		Help:      "Extraction attempts by outcome.",
	}, []string{"outcome"})

	m.extractionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Time spent obtaining extracted fields for one email.",
		Buckets:   m.histogramBuckets,
	}, []string{"outcome"})

	m.tasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "tasks_total",
		Help:      "Assembled tasks by priority tier.",
	}, []string{"priority"})

	m.registry.MustRegister(m.extractions, m.extractionDuration, m.tasks)
	return m
}

// ObserveExtraction records one extraction and how long it took
func (m *Manager) ObserveExtraction(outcome string, d time.Duration) {
	m.extractions.WithLabelValues(outcome).Inc()
	m.extractionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncTask counts an assembled task
func (m *Manager) IncTask(priority core.PriorityLabel) {
	m.tasks.WithLabelValues(string(priority)).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ core.MetricsRecorder = (*Manager)(nil)
