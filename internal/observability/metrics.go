package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_window"

// Metrics holds the Prometheus counters, histograms, and gauges for the windowing engine.
type Metrics struct {
	LinesConsumed prometheus.Counter
	ParseErrors   prometheus.Counter
	LookupMisses  prometheus.Counter
	EngineRunning prometheus.Gauge

	// Window and tick metrics.
	ObservationsBuffered prometheus.Gauge
	TickDuration         prometheus.Histogram
	ResultsEmitted       prometheus.Counter
	SinkErrors           prometheus.Counter

	// Reference data.
	StationsLoaded prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		LinesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_consumed_total",
			Help:      "Total raw lines read from the record source.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total observation lines dropped as malformed.",
		}),
		LookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_misses_total",
			Help:      "Total observations whose station had no country in the reference table.",
		}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_running",
			Help:      "1 when the engine is active, 0 when shut down.",
		}),
		ObservationsBuffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations_buffered",
			Help:      "Observations held by the window after the latest tick.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a complete advance-aggregate-emit tick.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ResultsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_emitted_total",
			Help:      "Total aggregation results handed to the sink.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Total ticks whose batch the sink failed to accept.",
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_loaded",
			Help:      "Distinct stations in the reference table.",
		}),
	}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LinesConsumed,
		m.ParseErrors,
		m.LookupMisses,
		m.EngineRunning,
		m.ObservationsBuffered,
		m.TickDuration,
		m.ResultsEmitted,
		m.SinkErrors,
		m.StationsLoaded,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
