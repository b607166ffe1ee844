package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherRequestLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "weather_request_latency_seconds",
			Namespace: NostradamusNamespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of weather API calls in seconds.",
		},
		[]string{"endpoint", "outcome"},
	)

	WeatherBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "weather_breaker_state",
		Namespace: NostradamusNamespace,
		Help:      "Weather API circuit breaker state (0 closed, 1 half-open, 2 open).",
	})
)
