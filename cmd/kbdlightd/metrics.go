package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================================
// Backlight
// ============================================================================

// metricBrightness is the brightness value the daemon last applied.
var metricBrightness = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kbdlight",
	Name:      "brightness",
	Help:      "Brightness value last applied by the daemon.",
})

// metricDims counts idle dims.
var metricDims = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kbdlight",
	Name:      "dims_total",
	Help:      "Times the backlight was turned off after the idle timeout.",
})

// metricRestores counts restores triggered by input activity.
var metricRestores = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kbdlight",
	Name:      "restores_total",
	Help:      "Times the backlight was restored on input activity.",
})

// metricBrightnessErrors counts failed accesses to the brightness attribute.
var metricBrightnessErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kbdlight",
	Name:      "brightness_errors_total",
	Help:      "Failed reads and writes of the brightness attribute.",
}, []string{"op"})

// ============================================================================
// Input
// ============================================================================

// metricEvents counts input events by classification (counted, filtered).
var metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kbdlight",
	Name:      "input_events_total",
	Help:      "Input events read, by classification.",
}, []string{"class"})

// metricReaders tracks the number of running input readers.
var metricReaders = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kbdlight",
	Name:      "input_readers",
	Help:      "Number of input devices currently monitored.",
})
