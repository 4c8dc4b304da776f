package ice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters. Registered on the default registry; the CLI
// exposes them when a metrics listen address is configured.
var (
	metricPixelsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breakup",
		Name:      "pixels_processed_total",
		Help:      "Pixels run through the per-pixel breakup pipeline.",
	})
	metricBreakupsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breakup",
		Name:      "breakups_detected_total",
		Help:      "Pixels with a detected ice-water-water transition.",
	})
	metricObservationsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breakup",
		Name:      "observations_filtered_total",
		Help:      "Observations masked by the robust temporal filter.",
	})
)
