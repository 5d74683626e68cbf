// Package metrics holds the Prometheus collectors of the lookup service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultCached  = "cached"
	ResultInvalid = "invalid"
)

var (
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoip",
		Name:      "lookups_total",
		Help:      "Address lookups by result.",
	}, []string{"result"})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoip",
		Name:      "table_build_duration_seconds",
		Help:      "Time spent building the range table.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	TableEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoip",
		Name:      "table_entries",
		Help:      "Leaf entries in the published range table.",
	})

	TableBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoip",
		Name:      "table_blocks",
		Help:      "Populated /16 blocks in the published range table.",
	})
)
