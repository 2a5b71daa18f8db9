package photon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photon_frames_decoded_total",
			Help: "Frames read from the input, by decoder",
		},
		[]string{"decoder"},
	)

	conversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photon_conversions_total",
			Help: "Finished conversions by encoder and status",
		},
		[]string{"encoder", "status"},
	)

	conversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photon_conversion_duration_seconds",
			Help:    "Conversion latency by encoder",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"encoder"},
	)

	paletteFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photon_palette_fallbacks_total",
			Help: "GIF conversions restarted with the full-frame encoder after a palette mismatch",
		},
	)
)

const (
	statusOK    = "ok"
	statusError = "error"
)
