package cache

import (
	"strings"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
)

// keyspaces bounds the label cardinality; anything else is "other".
var keyspaces = map[string]struct{}{
	"readings": {},
	"analysis": {},
	"weather":  {},
}

// keyspace is the key's prefix up to the first colon.
func keyspace(key string) string {
	prefix, _, _ := strings.Cut(key, ":")
	if _, ok := keyspaces[prefix]; ok {
		return prefix
	}
	return "other"
}

type CacheMetrics struct {
	driver string
}

func NewCacheMetrics(driver string) *CacheMetrics {
	return &CacheMetrics{
		driver,
	}
}

// RecordHit marks a hit on key and observes read latency since start.
func (cm *CacheMetrics) RecordHit(key string, start time.Time) {
	ks := keyspace(key)
	metrics.CacheHitsTotal.WithLabelValues(cm.driver, ks).Inc()
	metrics.CacheReadLatencySeconds.WithLabelValues(cm.driver, ks).Observe(time.Since(start).Seconds())
}

func (cm *CacheMetrics) RecordMiss(key string) {
	metrics.CacheMissesTotal.WithLabelValues(cm.driver, keyspace(key)).Inc()
}

// RecordWrite observes write latency for key since start.
func (cm *CacheMetrics) RecordWrite(key string, start time.Time) {
	metrics.CacheWriteLatencySeconds.WithLabelValues(cm.driver, keyspace(key)).Observe(time.Since(start).Seconds())
}
