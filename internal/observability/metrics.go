package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the explorer.
type Metrics struct {
	// Dataset build metrics.
	RowsLoaded         *prometheus.CounterVec // labels: source={temperatures,continents,countries}
	RowsDropped        *prometheus.CounterVec // labels: reason={blank_reading,no_continent,no_metadata}
	UnmatchedCountries *prometheus.GaugeVec   // labels: source={continents,countries}
	DeltaRows          prometheus.Gauge
	BuildDuration      prometheus.Histogram
	DatasetReady       prometheus.Gauge

	// Presenter metrics.
	YearRequests   *prometheus.CounterVec // labels: outcome={ok,empty,out_of_range,invalid}
	RenderDuration prometheus.Histogram

	// Export metrics.
	ExportedRows *prometheus.CounterVec // labels: sink
	ExportErrors *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsLoaded,
		m.RowsDropped,
		m.UnmatchedCountries,
		m.DeltaRows,
		m.BuildDuration,
		m.DatasetReady,
		m.YearRequests,
		m.RenderDuration,
		m.ExportedRows,
		m.ExportErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate",
			Name:      "rows_loaded_total",
			Help:      "Rows read from each source table.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate",
			Name:      "rows_dropped_total",
			Help:      "Temperature rows excluded from the enriched table, by reason.",
		}, []string{"reason"}),
		UnmatchedCountries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "climate",
			Name:      "unmatched_countries",
			Help:      "Distinct observed country names with no match in a lookup table.",
		}, []string{"source"}),
		DeltaRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate",
			Name:      "warming_delta_rows",
			Help:      "Countries with a warming delta between the reference years.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate",
			Name:      "dataset_build_duration_seconds",
			Help:      "Duration of loading and building the dataset.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DatasetReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate",
			Name:      "dataset_ready",
			Help:      "1 once the dataset is built and served, 0 before.",
		}),
		YearRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate",
			Name:      "year_requests_total",
			Help:      "Year selections served, by outcome.",
		}, []string{"outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate",
			Name:      "render_duration_seconds",
			Help:      "Duration of computing and rendering one year view.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ExportedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate",
			Name:      "exported_rows_total",
			Help:      "Warming delta rows written to each export sink.",
		}, []string{"sink"}),
		ExportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate",
			Name:      "export_errors_total",
			Help:      "Failed export attempts per sink.",
		}, []string{"sink"}),
	}
}
