package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// monitoring sweep and realtime fanout.
type Metrics struct {
	SweepsTotal   prometheus.Counter
	SweepDuration prometheus.Histogram
	SweepRunning  prometheus.Gauge

	DestinationsProcessed prometheus.Counter
	DestinationsSkipped   prometheus.Counter
	DestinationFailures   *prometheus.CounterVec // labels: reason={fetch,persistence,other}
	SnapshotReuses        prometheus.Counter

	AlertsGenerated *prometheus.CounterVec // labels: type, severity

	ProviderRequests prometheus.Counter
	ProviderErrors   prometheus.Counter
	ProviderDuration prometheus.Histogram

	FanoutSubscribers prometheus.Gauge
	EventsPublished   *prometheus.CounterVec // labels: type
	EventsDropped     prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SweepsTotal,
		m.SweepDuration,
		m.SweepRunning,
		m.DestinationsProcessed,
		m.DestinationsSkipped,
		m.DestinationFailures,
		m.SnapshotReuses,
		m.AlertsGenerated,
		m.ProviderRequests,
		m.ProviderErrors,
		m.ProviderDuration,
		m.FanoutSubscribers,
		m.EventsPublished,
		m.EventsDropped,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "sweeps_total",
			Help:      "Total monitoring sweeps executed.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecowatch",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a complete monitoring sweep.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SweepRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ecowatch",
			Name:      "sweep_running",
			Help:      "1 while a sweep is in progress.",
		}),
		DestinationsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "destinations_processed_total",
			Help:      "Destinations fully evaluated across all sweeps.",
		}),
		DestinationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "destinations_skipped_total",
			Help:      "Destinations skipped for missing coordinates.",
		}),
		DestinationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "destination_failures_total",
			Help:      "Per-destination sweep failures by reason.",
		}, []string{"reason"}),
		SnapshotReuses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "snapshot_reuses_total",
			Help:      "Sweep evaluations served from a fresh stored snapshot.",
		}),
		AlertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "alerts_generated_total",
			Help:      "Alerts activated by type and severity.",
		}, []string{"type", "severity"}),
		ProviderRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "provider_requests_total",
			Help:      "Weather provider API calls attempted.",
		}),
		ProviderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "provider_errors_total",
			Help:      "Weather provider API calls that failed.",
		}),
		ProviderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecowatch",
			Name:      "provider_request_duration_seconds",
			Help:      "Weather provider API request duration.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FanoutSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ecowatch",
			Name:      "fanout_subscribers",
			Help:      "Currently connected realtime subscribers.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "events_published_total",
			Help:      "Broadcast events published by type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecowatch",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber queue was full.",
		}),
	}
}
