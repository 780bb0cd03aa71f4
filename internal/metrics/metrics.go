// Package metrics exports case outcomes as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slipstream/providercheck/internal/suite"
)

const namespace = "providercheck"

// Collector records every case outcome of a run. It implements suite.Observer.
type Collector struct {
	registry *prometheus.Registry

	caseResults   *prometheus.CounterVec
	caseDuration  *prometheus.HistogramVec
	interactions  *prometheus.CounterVec
	suitesFailing *prometheus.GaugeVec
	lastRun       prometheus.Gauge
	excluded      prometheus.Gauge
}

var _ suite.Observer = (*Collector)(nil)

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		caseResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_results_total",
			Help:      "Case outcomes by adapter, case and status.",
		}, []string{"adapter", "case", "status"}),
		caseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "case_duration_seconds",
			Help:      "Case duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"case"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cassette_interactions_total",
			Help:      "HTTP interactions served per adapter, split into replayed and recorded.",
		}, []string{"adapter", "source"}),
		suitesFailing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suite_failing",
			Help:      "Whether the last run of an adapter's suite failed (1) or passed (0).",
		}, []string{"adapter"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Start time of the last completed run.",
		}),
		excluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adapters_excluded",
			Help:      "Adapters left out of the last run.",
		}),
	}
	c.registry.MustRegister(
		c.caseResults,
		c.caseDuration,
		c.interactions,
		c.suitesFailing,
		c.lastRun,
		c.excluded,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCase records one case outcome.
func (c *Collector) ObserveCase(s *suite.Suite, res suite.CaseResult) {
	id := s.ID()
	c.caseResults.WithLabelValues(id, string(res.Case), string(res.Status)).Inc()
	if res.Status == suite.StatusSkip {
		return
	}
	c.caseDuration.WithLabelValues(string(res.Case)).Observe(res.Duration.Seconds())
	c.interactions.WithLabelValues(id, "recorded").Add(float64(res.Recorded))
	c.interactions.WithLabelValues(id, "replayed").Add(float64(res.Interactions - res.Recorded))
}

// ObserveReport records per-suite state once a run has finished.
func (c *Collector) ObserveReport(r *suite.Report) {
	for _, s := range r.Suites {
		failing := 0.0
		if s.Failed() {
			failing = 1
		}
		c.suitesFailing.WithLabelValues(s.AdapterID).Set(failing)
	}
	c.excluded.Set(float64(len(r.Excluded)))
	c.lastRun.Set(float64(r.StartedAt.Unix()))
}

// WriteTextfile writes the current metrics in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
