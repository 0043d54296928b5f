// Package metrics exposes the Prometheus instrumentation of the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scraper metrics
	ScrapeCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nerve",
		Name:      "scrape_cycles_total",
		Help:      "Total completed scrape cycles",
	})

	ScrapeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerve",
		Name:      "scrape_errors_total",
		Help:      "Total upstream fetch errors",
	}, []string{"source", "region"}) // source: "azure", "weather", "carbon"

	ScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nerve",
		Name:      "scrape_duration_seconds",
		Help:      "Duration of a full scrape cycle",
		Buckets:   prometheus.DefBuckets,
	})

	GPUCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nerve",
		Name:      "gpu_instance_count",
		Help:      "GPU SKUs observed per region",
	}, []string{"region"})

	SpotPriceUSDHr = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nerve",
		Name:      "spot_price_usd_per_hour",
		Help:      "Current spot price per region and SKU",
	}, []string{"region", "sku"})

	CarbonIntensity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nerve",
		Name:      "carbon_intensity_gco2_kwh",
		Help:      "Grid carbon intensity per region",
	}, []string{"region"})

	// Engine metrics
	SimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerve",
		Name:      "simulations_total",
		Help:      "Placement simulations served",
	}, []string{"outcome"}) // "placed", "no_fit"

	CheckpointSimulationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nerve",
		Name:      "checkpoint_simulations_total",
		Help:      "Interruption simulations served",
	})

	TimeShiftPlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerve",
		Name:      "timeshift_plans_total",
		Help:      "Time-shift plans computed",
	}, []string{"recommended"}) // "true", "false"

	// Event bus metrics
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerve",
		Name:      "events_published_total",
		Help:      "Events published on the bus",
	}, []string{"type"})

	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nerve",
		Name:      "event_subscribers",
		Help:      "Live event feed subscribers",
	})
)
