package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

var ErrCacheMiss = errors.New("cache miss")

// AggregateCache stores computed values (analyses, weather) under a key with a TTL.
type AggregateCache interface {
	// StoreAggregate caches a computed aggregate with a TTL
	StoreAggregate(ctx context.Context, key string, data any, ttl time.Duration) error

	// FetchAggregate retrieves an aggregate from cache, ErrCacheMiss when absent
	FetchAggregate(ctx context.Context, key string) ([]byte, error)

	// Ping checks cache connection
	Ping(ctx context.Context) error

	// Close gracefully closes any connections
	Close()
}

// Cache adds per-sensor reading history (ZSET) on top of aggregates.
type Cache interface {
	AggregateCache

	// StoreReading appends a reading to its sensor's history
	StoreReading(ctx context.Context, r types.Reading) error

	// FetchLast retrieves the N most recent readings of a sensor, newest first
	FetchLast(ctx context.Context, sensorID string, n int) ([]types.Reading, error)
}

// FetchJSON reads an aggregate into v. A miss is reported as ErrCacheMiss.
func FetchJSON(ctx context.Context, c AggregateCache, key string, v any) error {
	b, err := c.FetchAggregate(ctx, key)
	if err != nil {
		return err
	}
	return unmarshal(b, v)
}
