package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ Cache = (*Valkey)(nil)

const (
	historyTTL = 48 * time.Hour
	historyCap = 500
)

type Valkey struct {
	client  redis.UniversalClient
	metrics *CacheMetrics
}

func NewValkey(addrs []string) *Valkey {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       addrs,
		DialTimeout: 2 * time.Second,
	})
	return NewValkeyFromClient(client)
}

func NewValkeyFromClient(client redis.UniversalClient) *Valkey {
	cm := NewCacheMetrics(metrics.ValkeyCache)
	return &Valkey{client, cm}
}

// Client exposes the underlying connection so other components can share it.
func (v *Valkey) Client() redis.UniversalClient {
	return v.client
}

func (v *Valkey) StoreReading(ctx context.Context, r types.Reading) error {
	ctx, span := otel.Tracer("nostradamus-cache").Start(ctx, "cache.StoreReading")
	defer span.End()

	span.SetAttributes(attribute.String("sensor.id", r.SensorID))

	ctx, cancel := context.WithTimeout(
		ctx,
		time.Millisecond*200,
	)
	defer cancel()

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	key := historyKey(r.SensorID)
	start := time.Now()
	_, err = v.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(r.Timestamp.UnixMilli()),
			Member: b,
		})
		pipe.ZRemRangeByRank(ctx, key, 0, -historyCap-1)
		pipe.Expire(ctx, key, historyTTL)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store reading: %w", err)
	}
	v.metrics.RecordWrite(key, start)
	span.SetStatus(codes.Ok, "")

	return nil
}

func (v *Valkey) FetchLast(ctx context.Context, sensorID string, n int) ([]types.Reading, error) {
	ctx, span := otel.Tracer("nostradamus-cache").Start(ctx, "cache.FetchLast")
	defer span.End()

	span.SetAttributes(
		attribute.String("sensor.id", sensorID),
		attribute.Int("cache.limit", n),
	)

	if n <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(
		ctx,
		time.Millisecond*100,
	)
	defer cancel()

	start := time.Now()
	key := historyKey(sensorID)
	members, err := v.client.ZRevRange(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("cache fetch: %w", err)
	}
	if len(members) == 0 {
		v.metrics.RecordMiss(key)
		return nil, ErrCacheMiss
	}
	v.metrics.RecordHit(key, start)

	ret := make([]types.Reading, 0, len(members))
	for _, m := range members {
		var r types.Reading
		if err := unmarshal([]byte(m), &r); err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	span.SetStatus(codes.Ok, "")

	return ret, nil
}

func (v *Valkey) StoreAggregate(ctx context.Context, key string, data any, ttl time.Duration) error {
	ctx, span := otel.Tracer("nostradamus-cache").Start(ctx, "cache.StoreAggregate")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.driver", metrics.ValkeyCache),
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl", int64(ttl.Seconds())),
	)

	ctx, cancel := context.WithTimeout(
		ctx,
		time.Millisecond*200,
	)
	defer cancel()

	b, err := json.Marshal(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}

	start := time.Now()
	if err := v.client.Set(ctx, key, b, ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store aggregate: %w", err)
	}
	v.metrics.RecordWrite(key, start)
	span.SetStatus(codes.Ok, "")

	return nil
}

func (v *Valkey) FetchAggregate(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer("nostradamus-cache").Start(ctx, "cache.FetchAggregate")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.driver", metrics.ValkeyCache),
		attribute.String("cache.key", key),
	)

	ctx, cancel := context.WithTimeout(
		ctx,
		time.Millisecond*100,
	)
	defer cancel()

	start := time.Now()
	val, err := v.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		v.metrics.RecordMiss(key)
		span.SetAttributes(attribute.String("cache.result", "miss"))
		span.SetStatus(codes.Ok, "")
		return nil, ErrCacheMiss
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("cache fetch: %w", err)
	default:
		v.metrics.RecordHit(key, start)
		span.SetAttributes(attribute.String("cache.result", "hit"))
		span.SetStatus(codes.Ok, "")
		return val, nil
	}
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *Valkey) Close() {
	v.client.Close()
}
