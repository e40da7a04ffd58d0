// Package metrics exposes Prometheus instrumentation for source loads
// and guide parsing. Register collectors once at startup; handlers and
// services record through the package-level vars.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceLoads counts playlist/EPG load attempts by source kind
	// (m3u, xtream, xmltv) and outcome (ok, error).
	SourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steadystream",
		Name:      "source_loads_total",
		Help:      "Playlist and EPG load attempts by source and outcome.",
	}, []string{"source", "outcome"})

	// RelayAttempts counts fetches routed through a public relay,
	// labelled by relay host and outcome.
	RelayAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steadystream",
		Name:      "relay_attempts_total",
		Help:      "Fetch attempts through CORS relays by relay and outcome.",
	}, []string{"relay", "outcome"})

	// ParseDuration observes how long a parse took by source kind.
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "steadystream",
		Name:      "parse_duration_seconds",
		Help:      "Time spent parsing a fetched playlist or guide document.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"source"})

	// GuideChannels tracks the channel count of the last loaded playlist.
	GuideChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "steadystream",
		Name:      "guide_channels",
		Help:      "Channels in the most recently loaded playlist.",
	})

	// GuidePrograms tracks the programme count of the last EPG load.
	GuidePrograms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "steadystream",
		Name:      "guide_programs",
		Help:      "Programmes in the most recently matched guide.",
	})
)
