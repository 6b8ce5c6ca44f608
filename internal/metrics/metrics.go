// Package metrics exposes Prometheus instrumentation for searches,
// download grabs and the websocket hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for direct instrumentation in the
// search and grab paths.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	SearchResults   *prometheus.HistogramVec
	IndexerFailures *prometheus.CounterVec
	GrabsTotal      *prometheus.CounterVec
	GrabDuration    prometheus.Histogram
	WebsocketPeers  prometheus.Gauge
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sabueso",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by kind.",
		}, []string{"kind"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sabueso",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time of search requests across all indexers.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		SearchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sabueso",
			Subsystem: "search",
			Name:      "results",
			Help:      "Result counts per search request.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"kind"}),
		IndexerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sabueso",
			Subsystem: "indexer",
			Name:      "failures_total",
			Help:      "Failed indexer operations by indexer.",
		}, []string{"indexer"}),
		GrabsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sabueso",
			Subsystem: "grab",
			Name:      "requests_total",
			Help:      "Download resolutions by indexer and outcome.",
		}, []string{"indexer", "outcome"}),
		GrabDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sabueso",
			Subsystem: "grab",
			Name:      "duration_seconds",
			Help:      "Wall time of download resolution, proof of work included.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		WebsocketPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sabueso",
			Subsystem: "websocket",
			Name:      "peers",
			Help:      "Connected websocket clients.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SearchesTotal,
		m.SearchDuration,
		m.SearchResults,
		m.IndexerFailures,
		m.GrabsTotal,
		m.GrabDuration,
		m.WebsocketPeers,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format,
// for mounting on the API server.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
