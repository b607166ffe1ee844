package worker

import (
	"context"
	"time"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
	Forecast(ctx context.Context, lat, lon float64) ([]types.ForecastDay, error)
}

// LocationSource lists the coordinates worth keeping warm, e.g. every farm.
type LocationSource interface {
	Locations(ctx context.Context) ([]types.Location, error)
}

// WeatherRefresher periodically re-fetches the weather for known locations so
// recommendation requests find it in cache.
type WeatherRefresher struct {
	Source    WeatherSource
	Locations LocationSource
	Static    []types.Location
	Interval  time.Duration
	Logger    zerolog.Logger
	cancelCtx context.CancelFunc
	done      chan struct{}
}

// NewWeatherRefresher creates a new background worker for weather refreshes.
func NewWeatherRefresher(src WeatherSource, static []types.Location, interval time.Duration, logger zerolog.Logger) *WeatherRefresher {
	return &WeatherRefresher{
		Source:   src,
		Static:   static,
		Interval: interval,
		Logger:   logger.With().Str("component", "weather-refresher").Logger(),
	}
}

func (w *WeatherRefresher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelCtx = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()

		w.Logger.Info().Dur("interval", w.Interval).Msg("started")
		w.RefreshOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				w.Logger.Info().Msg("stopped")
				return
			case <-ticker.C:
				w.RefreshOnce(ctx)
			}
		}
	}()
}

// Stop gracefully stops the background worker.
func (w *WeatherRefresher) Stop() {
	if w.cancelCtx != nil {
		w.cancelCtx()
		<-w.done
	}
}

// RefreshOnce warms the cache for every location and returns how many were
// refreshed without error.
func (w *WeatherRefresher) RefreshOnce(ctx context.Context) int {
	locs := append([]types.Location(nil), w.Static...)
	if w.Locations != nil {
		more, err := w.Locations.Locations(ctx)
		if err != nil {
			w.Logger.Warn().Err(err).Msg("failed to list locations")
		}
		locs = append(locs, more...)
	}

	seen := make(map[types.Location]bool)
	ok := 0
	for _, loc := range locs {
		if seen[loc] {
			continue
		}
		seen[loc] = true

		if _, err := w.Source.Current(ctx, loc.Lat, loc.Lon); err != nil {
			w.Logger.Warn().Err(err).Float64("lat", loc.Lat).Float64("lon", loc.Lon).Msg("current weather refresh failed")
			continue
		}
		if _, err := w.Source.Forecast(ctx, loc.Lat, loc.Lon); err != nil {
			w.Logger.Warn().Err(err).Float64("lat", loc.Lat).Float64("lon", loc.Lon).Msg("forecast refresh failed")
			continue
		}
		ok++
	}
	return ok
}
