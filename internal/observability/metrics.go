package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stormview"

// Metrics holds the Prometheus counters, histograms, and gauges for the imagery engine.
type Metrics struct {
	Selections      *prometheus.CounterVec // labels: subject={overview,storm}, slot={latest,historic}
	Resolutions     *prometheus.CounterVec // labels: outcome={ready,empty,no_imagery,failed}
	StaleResults    *prometheus.CounterVec // labels: pipeline={imagery,detail}
	DetailFetches   *prometheus.CounterVec // labels: outcome={ready,failed}
	ImageLoads      *prometheus.CounterVec // labels: outcome={loaded,broken}
	ResolveDuration prometheus.Histogram

	// Backend client metrics.
	BackendRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,network,not_found,malformed}
	BackendDuration *prometheus.HistogramVec // labels: endpoint
	ImageCache      *prometheus.CounterVec   // labels: result={hit,miss,bypass}

	WatchRunning prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Selections,
		m.Resolutions,
		m.StaleResults,
		m.DetailFetches,
		m.ImageLoads,
		m.ResolveDuration,
		m.BackendRequests,
		m.BackendDuration,
		m.ImageCache,
		m.WatchRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Selection changes by subject kind and slot kind.",
		}, []string{"subject", "slot"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Imagery resolutions applied to the current selection, by outcome.",
		}, []string{"outcome"}),
		StaleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Fetch results dropped because the selection changed first.",
		}, []string{"pipeline"}),
		DetailFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_fetches_total",
			Help:      "Detail fetches applied, by outcome.",
		}, []string{"outcome"}),
		ImageLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_loads_total",
			Help:      "Displayed images settled by the rendering surface, by outcome.",
		}, []string{"outcome"}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time from selection to applied imagery resolution.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Storm backend requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Storm backend request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ImageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_cache_total",
			Help:      "Image cache lookups by result.",
		}, []string{"result"}),
		WatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_running",
			Help:      "1 when the watcher loop is active, 0 when shut down.",
		}),
	}
}
