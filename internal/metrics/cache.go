package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ValkeyCache    = "valkey"
	MemcachedCache = "memcached"
)

var (
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_misses_total",
		Namespace: NostradamusNamespace,
		Help:      "The total number of cache misses since the application started.",
	}, []string{"cache", "keyspace"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_hits_total",
		Namespace: NostradamusNamespace,
		Help:      "The total number of cache hits since the application started.",
	}, []string{"cache", "keyspace"})

	CacheReadLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "cache_read_latency_seconds",
		Namespace: NostradamusNamespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of cache read operations in seconds.",
	}, []string{"cache", "keyspace"})

	CacheWriteLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "cache_write_latency_seconds",
		Namespace: NostradamusNamespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of cache write operations in seconds.",
	}, []string{"cache", "keyspace"})
)
