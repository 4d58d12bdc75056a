package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TilesRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wmts_tiles_requests_total",
		Help: "Total number of tiles resolved through the tile cache",
	})

	TilesCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wmts_tiles_cache_hits_total",
		Help: "Total number of tile cache hits",
	})

	TilesCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wmts_tiles_cache_misses_total",
		Help: "Total number of tile cache misses",
	})

	TilesCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wmts_tiles_cache_evictions_total",
		Help: "Total number of tiles evicted from the tile cache",
	})

	TilesUpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wmts_tiles_upstream_requests_total",
		Help: "Total number of upstream tile fetches by protocol and outcome",
	}, []string{"protocol", "outcome"})

	TilesUpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wmts_tiles_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	TilesPerRequest = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wmts_tiles_per_extent",
		Help:    "Number of tiles returned for one extent",
		Buckets: prometheus.ExponentialBuckets(1, 2, 11),
	})
)
