package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "temperature_map"

// Metrics holds the Prometheus counters, histograms, and gauges for dataset
// loading and the query API.
type Metrics struct {
	Loads          prometheus.Counter
	LoadFailures   prometheus.Counter
	LoadDuration   prometheus.Histogram
	SnapshotLoaded prometheus.Gauge

	// Join outcome of the current snapshot.
	EntitiesMatched   prometheus.Gauge
	EntitiesUnmatched prometheus.Gauge
	RowsDropped       prometheus.Gauge
	PeriodsDiscovered prometheus.Gauge

	SourceFetchDuration *prometheus.HistogramVec // labels: source={table,geometry,series}
	RangeQueries        *prometheus.CounterVec   // labels: outcome={ok,empty,unknown_period}
	EntitiesPublished   prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total successful dataset loads.",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      "Total dataset loads that failed and kept the previous snapshot.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete fetch-decode-join cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_loaded",
			Help:      "1 once a dataset snapshot is being served, 0 before.",
		}),
		EntitiesMatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities_matched",
			Help:      "Geometry entities enriched by a table row in the current snapshot.",
		}),
		EntitiesUnmatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities_unmatched",
			Help:      "Geometry entities without a table row in the current snapshot.",
		}),
		RowsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_dropped",
			Help:      "Table rows whose id matched no geometry entity.",
		}),
		PeriodsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "periods_discovered",
			Help:      "Number of period columns in the current snapshot.",
		}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Time to fetch and decode one source by kind.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		RangeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_queries_total",
			Help:      "Period range queries by outcome.",
		}, []string{"outcome"}),
		EntitiesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_published_total",
			Help:      "Enriched entities written to the Kafka topic.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Loads,
		m.LoadFailures,
		m.LoadDuration,
		m.SnapshotLoaded,
		m.EntitiesMatched,
		m.EntitiesUnmatched,
		m.RowsDropped,
		m.PeriodsDiscovered,
		m.SourceFetchDuration,
		m.RangeQueries,
		m.EntitiesPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
