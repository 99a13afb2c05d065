// Package metrics exposes prometheus collectors for the broadcast engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal counts playlist resolutions partitioned by the
	// cascade tier that produced the media. Fallback tiers trending up is
	// the signal that schedules are misconfigured.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rerun_playlist_resolutions_total",
		Help: "Playlist resolutions by cascade tier",
	}, []string{"tier"})

	// TicksTotal counts broadcast runner ticks by outcome.
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rerun_broadcast_ticks_total",
		Help: "Broadcast runner ticks by result",
	}, []string{"result"})

	// TickDuration tracks how long a full runner tick takes across all
	// channels.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rerun_broadcast_tick_duration_seconds",
		Help:    "Duration of a broadcast runner tick",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// ChannelsOnAir gauges how many channels currently resolve to a
	// non-empty playlist.
	ChannelsOnAir = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rerun_channels_on_air",
		Help: "Channels currently broadcasting a non-empty playlist",
	})

	// ProgressionAdvancesTotal counts persisted sequential resume cursors,
	// written when a bucket stops being a channel's source.
	ProgressionAdvancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rerun_progression_advances_total",
		Help: "Sequential resume cursor writes",
	})
)

// IncResolution records a playlist resolution for the given tier name.
func IncResolution(tier string) {
	ResolutionsTotal.WithLabelValues(tier).Inc()
}

// ObserveTick records one runner tick with its outcome and duration.
func ObserveTick(err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	TicksTotal.WithLabelValues(result).Inc()
	TickDuration.Observe(duration.Seconds())
}
