package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the card service.
type Metrics struct {
	Renders        prometheus.Counter
	RenderDuration prometheus.Histogram
	ConfigUpdates  prometheus.Counter
	StateUpdates   prometheus.Counter

	// Catalog metrics.
	CatalogLoads     *prometheus.CounterVec // labels: source={remote,fallback}
	CatalogCountries prometheus.Gauge
	CatalogLoaded    prometheus.Gauge

	// State feed metrics.
	StateEventsConsumed prometheus.Counter
	StateDecodeErrors   prometheus.Counter
	StateFeedRunning    prometheus.Gauge
	RenderPublishErrors prometheus.Counter

	RasterCache    *prometheus.CounterVec // labels: result={hit,miss}
	TrackerChanges *prometheus.CounterVec // labels: action={location,add,remove,set}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "renders_total",
			Help:      "Total card renders.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "been_map",
			Name:      "render_duration_seconds",
			Help:      "Duration of a full card render.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ConfigUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "config_updates_total",
			Help:      "Card configuration replacements.",
		}),
		StateUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "state_updates_total",
			Help:      "Host state snapshots applied to the card.",
		}),
		CatalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "catalog_loads_total",
			Help:      "Countries catalog loads by source.",
		}, []string{"source"}),
		CatalogCountries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "been_map",
			Name:      "catalog_countries",
			Help:      "Number of countries in the loaded catalog.",
		}),
		CatalogLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "been_map",
			Name:      "catalog_loaded",
			Help:      "1 once the countries catalog is available, 0 before.",
		}),
		StateEventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "state_events_consumed_total",
			Help:      "Total entity state events read from the state topic.",
		}),
		StateDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "state_decode_errors_total",
			Help:      "State events skipped because they could not be decoded.",
		}),
		StateFeedRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "been_map",
			Name:      "state_feed_running",
			Help:      "1 when the state feed is active, 0 when shut down.",
		}),
		RenderPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "render_publish_errors_total",
			Help:      "Rendered cards that could not be published to the render topic.",
		}),
		RasterCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "raster_cache_total",
			Help:      "PNG snapshot cache lookups by result.",
		}, []string{"result"}),
		TrackerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "been_map",
			Name:      "tracker_changes_total",
			Help:      "Location tracker updates by action.",
		}, []string{"action"}),
	}

	prometheus.MustRegister(
		m.Renders,
		m.RenderDuration,
		m.ConfigUpdates,
		m.StateUpdates,
		m.CatalogLoads,
		m.CatalogCountries,
		m.CatalogLoaded,
		m.StateEventsConsumed,
		m.StateDecodeErrors,
		m.StateFeedRunning,
		m.RenderPublishErrors,
		m.RasterCache,
		m.TrackerChanges,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Renders:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "been_map", Name: "renders_total"}),
		RenderDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "been_map", Name: "render_duration_seconds"}),
		ConfigUpdates:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "been_map", Name: "config_updates_total"}),
		StateUpdates:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "been_map", Name: "state_updates_total"}),
		CatalogLoads:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "been_map", Name: "catalog_loads_total"}, []string{"source"}),
		CatalogCountries:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "been_map", Name: "catalog_countries"}),
		CatalogLoaded:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "been_map", Name: "catalog_loaded"}),
		StateEventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "been_map", Name: "state_events_consumed_total"}),
		StateDecodeErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "been_map", Name: "state_decode_errors_total"}),
		StateFeedRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "been_map", Name: "state_feed_running"}),
		RenderPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "been_map", Name: "render_publish_errors_total"}),
		RasterCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "been_map", Name: "raster_cache_total"}, []string{"result"}),
		TrackerChanges:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "been_map", Name: "tracker_changes_total"}, []string{"action"}),
	}
}
