// Package metrics exposes conversion counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

const namespace = "csvxlsx"

// Metrics holds the collectors for one process. It implements
// core.Observer.
type Metrics struct {
	registry *prometheus.Registry

	files    *prometheus.CounterVec
	bytes    prometheus.Counter
	duration prometheus.Histogram
	archives *prometheus.CounterVec
	access   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Uploaded files by outcome status and error kind.",
		}, []string{"status", "kind"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_total",
			Help:      "Bytes of uploaded input seen by the converter.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to convert one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_total",
			Help:      "Bulk archives by result.",
		}, []string{"result"}),
		access: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_attempts_total",
			Help:      "Password checks by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.files, m.bytes, m.duration, m.archives, m.access,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveBatch records every file outcome and the archive result.
func (m *Metrics) ObserveBatch(b *core.BatchResult) {
	for _, f := range b.Files {
		kind := core.KindNone
		if f.Err != nil {
			kind = f.Err.Kind
		}
		m.files.WithLabelValues(string(f.Status), kind.String()).Inc()
		m.bytes.Add(float64(f.Size))
	}
	m.duration.Observe(b.Duration.Seconds())

	switch {
	case b.Archive != nil:
		m.archives.WithLabelValues("built").Inc()
	case b.ArchiveErr != nil:
		m.archives.WithLabelValues("failed").Inc()
	}
}

// ObserveAccess records one gate evaluation.
func (m *Metrics) ObserveAccess(d core.AccessDecision) {
	result := "missing"
	switch {
	case d.Allowed:
		result = "allowed"
	case d.Attempted:
		result = "denied"
	}
	m.access.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
