// Package advisor assembles everything a recommendation needs (history,
// weather, farmer profile, crop data) and runs the engine on it.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/analysis"
	"github.com/ntentasd/nostradamus-advisor/internal/cache"
	"github.com/ntentasd/nostradamus-advisor/internal/crops"
	"github.com/ntentasd/nostradamus-advisor/internal/db"
	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
	"github.com/ntentasd/nostradamus-advisor/internal/recommend"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type ReadingSource interface {
	GetLastReadings(ctx context.Context, sensorID string, n int) ([]types.Reading, error)
	GetReadings(ctx context.Context, sensorID string, from, to time.Time) ([]types.Reading, error)
}

type HistoryCache interface {
	FetchLast(ctx context.Context, sensorID string, n int) ([]types.Reading, error)
}

type ProfileStore interface {
	GetFarmerProfile(ctx context.Context, farmerID uuid.UUID) (*types.FarmerProfile, error)
}

type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
	Forecast(ctx context.Context, lat, lon float64) ([]types.ForecastDay, error)
}

// Advisor answers recommendation and report requests. Readings, Crops and
// Synth are required; History, Profiles, Weather and Aggregates may be nil.
type Advisor struct {
	Readings        ReadingSource
	History         HistoryCache
	Profiles        ProfileStore
	Weather         WeatherSource
	Aggregates      cache.AggregateCache
	Crops           *crops.KnowledgeBase
	Synth           *recommend.Synthesizer
	DefaultLocation types.Location
	HistorySize     int
	CacheTTL        time.Duration
	Concurrency     int
	Logger          zerolog.Logger
}

type Summary struct {
	SensorID    string          `json:"sensor_id"`
	HealthScore int             `json:"health_score"`
	Status      analysis.Status `json:"current_status"`
	Timestamp   time.Time       `json:"timestamp,omitzero"`
	CropType    string          `json:"crop_type"`
	GrowthStage string          `json:"growth_stage,omitempty"`
	NoData      bool            `json:"no_data,omitempty"`
}

type Analysis struct {
	Recommendations []types.Recommendation `json:"recommendations"`
	Summary         Summary                `json:"summary"`
}

func (a *Advisor) historySize() int {
	if a.HistorySize > 0 {
		return a.HistorySize
	}
	return 24
}

func analysisKey(sensorID string, farmerID *uuid.UUID) string {
	farmer := "-"
	if farmerID != nil {
		farmer = farmerID.String()
	}
	return fmt.Sprintf("analysis:%s:%s", sensorID, farmer)
}

// Analyze produces the recommendations and health summary of one sensor.
// farmerID is optional and tunes the analysis to the farmer's crop and
// preferences.
func (a *Advisor) Analyze(ctx context.Context, sensorID string, farmerID *uuid.UUID) (*Analysis, error) {
	ctx, span := otel.Tracer("nostradamus-advisor").Start(ctx, "advisor.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("sensor.id", sensorID))

	key := analysisKey(sensorID, farmerID)
	if a.Aggregates != nil {
		var cached Analysis
		if err := cache.FetchJSON(ctx, a.Aggregates, key, &cached); err == nil {
			span.SetAttributes(attribute.Bool("advisor.cached", true))
			return &cached, nil
		}
	}

	history, err := a.history(ctx, sensorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(history) == 0 {
		return &Analysis{
			Recommendations: []types.Recommendation{},
			Summary:         Summary{SensorID: sensorID, NoData: true},
		}, nil
	}
	latest := history[0]

	profile, err := a.profile(ctx, farmerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	cropType := profile.PrimaryCrop()
	if cropType == "" {
		cropType = crops.DefaultCrop
	}
	crop, found := a.Crops.Lookup(cropType)
	if !found {
		a.Logger.Debug().Str("crop", cropType).Msg("unknown crop, using default profile")
	}

	loc := a.location(profile, latest)
	snapshot, forecast := a.weather(ctx, loc)

	var prefs *types.FarmerPreferences
	if profile != nil {
		prefs = &profile.Preferences
	}

	recs := a.Synth.Synthesize(recommend.Input{
		Reading:     latest,
		History:     history,
		Weather:     snapshot,
		Forecast:    forecast,
		Crop:        crop,
		Preferences: prefs,
	})
	if recs == nil {
		recs = []types.Recommendation{}
	}
	for _, r := range recs {
		metrics.RecommendationsTotal.WithLabelValues(string(r.Type), string(r.Category)).Inc()
	}

	score := analysis.HealthScore(latest, crop)
	metrics.HealthScore.WithLabelValues(sensorID).Set(float64(score))

	res := &Analysis{
		Recommendations: recs,
		Summary: Summary{
			SensorID:    sensorID,
			HealthScore: score,
			Status:      analysis.StatusOf(score),
			Timestamp:   latest.Timestamp,
			CropType:    crop.Crop,
			GrowthStage: growthStage(profile, crop, latest.Timestamp),
		},
	}

	if a.Aggregates != nil && a.CacheTTL > 0 {
		if err := a.Aggregates.StoreAggregate(ctx, key, res, a.CacheTTL); err != nil {
			a.Logger.Warn().Err(err).Str("key", key).Msg("failed to cache analysis")
		}
	}

	return res, nil
}

// history returns the most recent readings, newest first. The cache only
// answers when it holds a full window; a short cache (after a flush or
// expiry) falls through to the store.
func (a *Advisor) history(ctx context.Context, sensorID string) ([]types.Reading, error) {
	n := a.historySize()

	var cached []types.Reading
	if a.History != nil {
		readings, err := a.History.FetchLast(ctx, sensorID, n)
		switch {
		case err == nil && len(readings) >= n:
			return readings[:n], nil
		case err == nil:
			cached = readings
		case !errors.Is(err, cache.ErrCacheMiss):
			a.Logger.Warn().Err(err).Str("sensor_id", sensorID).Msg("history cache unavailable")
		}
	}

	readings, err := a.Readings.GetLastReadings(ctx, sensorID, n)
	if err != nil {
		if len(cached) > 0 {
			a.Logger.Warn().Err(err).Str("sensor_id", sensorID).Int("readings", len(cached)).Msg("store unavailable, using partial cached history")
			return cached, nil
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(readings) < len(cached) {
		return cached, nil
	}
	return readings, nil
}

func (a *Advisor) profile(ctx context.Context, farmerID *uuid.UUID) (*types.FarmerProfile, error) {
	if farmerID == nil || a.Profiles == nil {
		return nil, nil
	}
	p, err := a.Profiles.GetFarmerProfile(ctx, *farmerID)
	if errors.Is(err, db.ErrProfileNotFound) {
		a.Logger.Debug().Str("farmer_id", farmerID.String()).Msg("no farmer profile, using defaults")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load farmer profile: %w", err)
	}
	return p, nil
}

func (a *Advisor) location(profile *types.FarmerProfile, latest types.Reading) types.Location {
	if loc := profile.LocationFor(latest.SensorID); loc != nil {
		return *loc
	}
	if latest.Location != nil {
		return *latest.Location
	}
	return a.DefaultLocation
}

// weather degrades to no data on failure; the analyses that need it are
// then skipped.
func (a *Advisor) weather(ctx context.Context, loc types.Location) (*types.WeatherSnapshot, []types.ForecastDay) {
	if a.Weather == nil {
		return nil, nil
	}
	snapshot, err := a.Weather.Current(ctx, loc.Lat, loc.Lon)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("current weather unavailable")
		snapshot = nil
	}
	forecast, err := a.Weather.Forecast(ctx, loc.Lat, loc.Lon)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("forecast unavailable")
		forecast = nil
	}
	return snapshot, forecast
}

func growthStage(profile *types.FarmerProfile, crop types.CropProfile, at time.Time) string {
	if profile == nil || len(profile.MainCrops) == 0 {
		return ""
	}
	planted := profile.MainCrops[0].PlantingDate
	if planted.IsZero() {
		return ""
	}
	stage, ok := crop.StageAt(int(at.Sub(planted).Hours() / 24))
	if !ok {
		return ""
	}
	return stage.Name
}
