package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CommandsTotal counts proxied commands by verb and outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_commands_total",
			Help: "Total number of client commands handled by the proxy.",
		},
		[]string{"verb", "outcome"},
	)

	// ForwardDuration measures how long backend round trips take.
	ForwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxy_forward_duration_seconds",
			Help:    "Histogram of backend forward round-trip latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// ForwardsTotal counts backend forwards by result.
	ForwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_forwards_total",
			Help: "Count of backend forward attempts.",
		},
		[]string{"status"},
	)

	// CacheHits counts cache lookups answered locally.
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_hits_total",
			Help: "Number of cache lookups served from the local cache.",
		},
	)

	// CacheMisses counts cache lookups that fell through to the backend.
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_misses_total",
			Help: "Number of cache lookups that missed (absent or stale).",
		},
	)
)

// Register registers all metrics in the default registry.
func Register() {
	prometheus.MustRegister(
		CommandsTotal,
		ForwardDuration,
		ForwardsTotal,
		CacheHits,
		CacheMisses,
	)
}

// RecordCommand increments CommandsTotal for one handled command.
func RecordCommand(verb string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CommandsTotal.WithLabelValues(verb, outcome).Inc()
}

// RecordForward records one backend round trip and its duration.
func RecordForward(err error, durationSeconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ForwardsTotal.WithLabelValues(status).Inc()
	ForwardDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordLookup records a cache lookup result.
func RecordLookup(hit bool) {
	if hit {
		CacheHits.Inc()
		return
	}
	CacheMisses.Inc()
}
