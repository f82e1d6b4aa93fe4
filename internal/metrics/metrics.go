// Package metrics defines the Prometheus collectors for surf queries and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wizenheimer/surf"
)

// Outcome labels for QueriesTotal.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
)

// Metrics holds the query collectors.
type Metrics struct {
	QueriesTotal    *prometheus.CounterVec
	QueryLatency    prometheus.Histogram
	ResultsPerQuery prometheus.Histogram
	ResultsBySource *prometheus.CounterVec
	IndexDocuments  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surf_queries_total",
				Help: "Total queries by outcome (match, no_match).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "surf_query_latency_seconds",
				Help:    "Top-k query latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		ResultsPerQuery: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "surf_results_per_query",
				Help:    "Number of documents reported per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 1000},
			},
		),
		ResultsBySource: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surf_results_total",
				Help: "Reported documents by source (grid, singleton).",
			},
			[]string{"source"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "surf_index_documents",
				Help: "Number of documents in the loaded index.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.QueryLatency,
		m.ResultsPerQuery,
		m.ResultsBySource,
		m.IndexDocuments,
	)
	return m
}

// ObserveQuery records one finished query.
func (m *Metrics) ObserveQuery(matched bool, results []surf.Result, elapsed time.Duration) {
	outcome := OutcomeNoMatch
	if matched {
		outcome = OutcomeMatch
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.QueryLatency.Observe(elapsed.Seconds())
	m.ResultsPerQuery.Observe(float64(len(results)))
	for _, r := range results {
		m.ResultsBySource.WithLabelValues(r.Source.String()).Inc()
	}
}

// Handler returns the HTTP handler for the registry the metrics were
// registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
