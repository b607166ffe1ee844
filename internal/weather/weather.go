// Package weather fetches current conditions and a 5-day forecast from
// OpenWeatherMap, caching results and shielding callers from an unhealthy API.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/ntentasd/nostradamus-advisor/internal/cache"
	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrNoAPIKey    = errors.New("weather: no API key configured")
	ErrUnavailable = errors.New("weather: service unavailable")
)

type Options struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	CacheTTL        time.Duration
	MaxRetries      uint64
	InitialBackoff  time.Duration
	BreakerFailures uint32
	BreakerOpen     time.Duration
}

func DefaultOptions() Options {
	return Options{
		BaseURL:         "https://api.openweathermap.org/data/2.5",
		Timeout:         5 * time.Second,
		CacheTTL:        30 * time.Minute,
		MaxRetries:      2,
		InitialBackoff:  200 * time.Millisecond,
		BreakerFailures: 5,
		BreakerOpen:     time.Minute,
	}
}

type Client struct {
	http    *resty.Client
	opts    Options
	cache   cache.AggregateCache
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// New builds a client. c may be nil, in which case nothing is cached.
func New(opts Options, c cache.AggregateCache, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "weather").Logger()

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "openweathermap",
		Timeout: opts.BreakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.WeatherBreakerState.Set(float64(to))
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Client{
		http:    httpClient,
		opts:    opts,
		cache:   c,
		breaker: breaker,
		logger:  logger,
	}
}

func cacheKey(kind string, lat, lon float64) string {
	return fmt.Sprintf("weather:%s:%.4f:%.4f", kind, lat, lon)
}

// Current returns the weather now at lat/lon.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	key := cacheKey("current", lat, lon)

	var snap types.WeatherSnapshot
	if c.fromCache(ctx, key, &snap) {
		return &snap, nil
	}

	var raw owmCurrent
	if err := c.fetch(ctx, "/weather", lat, lon, &raw); err != nil {
		return nil, err
	}
	snap = raw.snapshot()
	c.toCache(ctx, key, snap)

	return &snap, nil
}

// Forecast returns up to five days of forecast at lat/lon, today first.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]types.ForecastDay, error) {
	key := cacheKey("forecast", lat, lon)

	var days []types.ForecastDay
	if c.fromCache(ctx, key, &days) {
		return days, nil
	}

	var raw owmForecast
	if err := c.fetch(ctx, "/forecast", lat, lon, &raw); err != nil {
		return nil, err
	}
	days = raw.days()
	c.toCache(ctx, key, days)

	return days, nil
}

func (c *Client) fromCache(ctx context.Context, key string, v any) bool {
	if c.cache == nil {
		return false
	}
	err := cache.FetchJSON(ctx, c.cache, key, v)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("weather cache read failed")
	}
	return err == nil
}

func (c *Client) toCache(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.StoreAggregate(ctx, key, v, c.opts.CacheTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("weather cache write failed")
	}
}

// fetch calls the API through the breaker, retrying transient failures.
func (c *Client) fetch(ctx context.Context, endpoint string, lat, lon float64, out any) error {
	if c.opts.APIKey == "" {
		return ErrNoAPIKey
	}

	ctx, span := otel.Tracer("nostradamus-weather").Start(ctx, "weather.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("weather.endpoint", endpoint))

	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = c.opts.InitialBackoff
		policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.opts.MaxRetries), ctx)

		return nil, backoff.Retry(func() error {
			return c.get(ctx, endpoint, lat, lon, out)
		}, policy)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	metrics.WeatherRequestLatencySeconds.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, lat, lon float64, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lon, 'f', -1, 64),
			"appid": c.opts.APIKey,
			"units": "metric",
		}).
		SetResult(out).
		Get(endpoint)
	if err != nil {
		return err
	}

	switch code := resp.StatusCode(); {
	case code >= 500 || code == http.StatusTooManyRequests:
		return fmt.Errorf("openweathermap returned %s", resp.Status())
	case code >= 400:
		return backoff.Permanent(fmt.Errorf("openweathermap returned %s", resp.Status()))
	}
	return nil
}
