package recommend

import (
	"testing"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/crops"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func profile(t *testing.T, crop string) types.CropProfile {
	t.Helper()
	p, ok := crops.New().Lookup(crop)
	require.True(t, ok)
	return p
}

// optimal maize reading: humidity 40-60, temperature 20-30, pH 5.8-7.0
func optimal() types.Reading {
	return types.Reading{SensorID: "S1", Timestamp: now, Humidity: 50, Temperature: 25, SoilPH: 6.5}
}

func wetForecast(n int) []types.ForecastDay {
	out := make([]types.ForecastDay, n)
	for i := range out {
		out[i] = types.ForecastDay{Day: "Mon", RainChance: 60, RainVolume: 5}
	}
	return out
}

func synth(in Input) []types.Recommendation {
	return New(DefaultConfig()).Synthesize(in)
}

func categories(recs []types.Recommendation) []types.Category {
	out := make([]types.Category, len(recs))
	for i, r := range recs {
		out[i] = r.Category
	}
	return out
}

func TestSynthesize_WithinBandEmitsNothing(t *testing.T) {
	in := Input{
		Reading:  optimal(),
		History:  []types.Reading{optimal()},
		Weather:  &types.WeatherSnapshot{WindSpeed: 3},
		Forecast: wetForecast(5),
		Crop:     profile(t, "maize"),
	}

	assert.Empty(t, synth(in))
}

func TestSynthesize_Humidity(t *testing.T) {
	tests := []struct {
		name     string
		humidity float64
		forecast []types.ForecastDay
		typ      types.Severity
		category types.Category
		priority int
	}{
		{"critical dry", 25, nil, types.SeverityCritical, types.CategoryIrrigation, 10},
		{"defer for rain", 35, []types.ForecastDay{{RainChance: 0}, {RainChance: 60}}, types.SeverityInfo, types.CategoryIrrigation, 3},
		{"rain exactly at limit", 35, []types.ForecastDay{{RainChance: 0}, {RainChance: 50}}, types.SeverityWarning, types.CategoryIrrigation, 7},
		{"schedule", 35, nil, types.SeverityWarning, types.CategoryIrrigation, 7},
		{"drainage", 80, nil, types.SeverityCritical, types.CategoryDrainage, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := optimal()
			r.Humidity = tt.humidity

			got := synth(Input{Reading: r, Forecast: tt.forecast, Crop: profile(t, "maize")})

			require.Len(t, got, 1)
			assert.Equal(t, tt.typ, got[0].Type)
			assert.Equal(t, tt.category, got[0].Category)
			assert.Equal(t, tt.priority, got[0].Priority)
			assert.Equal(t, "S1", got[0].SensorID)
		})
	}
}

func TestSynthesize_DeferIrrigationUsesNextPeriod(t *testing.T) {
	r := optimal()
	r.Humidity = 35

	got := synth(Input{
		Reading:  r,
		Forecast: []types.ForecastDay{{RainChance: 90}, {RainChance: 60}},
		Crop:     profile(t, "maize"),
	})

	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityInfo, got[0].Type)
	assert.Equal(t, "Defer irrigation by 24h", got[0].Action)
	assert.Equal(t, 60.0, got[0].Data["rain_chance"])
}

func TestSynthesize_HeatStressDependsOnWind(t *testing.T) {
	r := optimal()
	r.Temperature = 37

	calm := synth(Input{Reading: r, Weather: &types.WeatherSnapshot{WindSpeed: 2}, Crop: profile(t, "maize")})
	windy := synth(Input{Reading: r, Weather: &types.WeatherSnapshot{WindSpeed: 6}, Crop: profile(t, "maize")})
	unknown := synth(Input{Reading: r, Crop: profile(t, "maize")})

	require.Len(t, calm, 1)
	require.Len(t, windy, 1)
	require.Len(t, unknown, 1)
	assert.Equal(t, types.SeverityCritical, calm[0].Type)
	assert.Contains(t, calm[0].Action, "shading")
	assert.Contains(t, windy[0].Action, "natural ventilation")
	assert.Equal(t, calm[0].Action, unknown[0].Action)
}

func TestSynthesize_Temperature(t *testing.T) {
	r := optimal()

	r.Temperature = 32
	got := synth(Input{Reading: r, Crop: profile(t, "maize")})
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityWarning, got[0].Type)
	assert.Equal(t, 6, got[0].Priority)

	r.Temperature = 15
	got = synth(Input{Reading: r, Crop: profile(t, "maize")})
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Priority)

	// below optimal but above the cold stress limit
	r.Temperature = 17
	assert.Empty(t, synth(Input{Reading: r, Crop: profile(t, "maize")}))
}

func TestSynthesize_LimeDosage(t *testing.T) {
	r := optimal()
	r.SoilPH = 5.0

	got := synth(Input{Reading: r, Crop: profile(t, "rice")})

	var soil *types.Recommendation
	for i := range got {
		if got[i].Category == types.CategorySoil {
			soil = &got[i]
		}
	}
	require.NotNil(t, soil)
	assert.Equal(t, "Apply 250 kg/ha of lime", soil.Action)
	assert.Equal(t, 250, soil.Data["lime_kg_ha"])
	assert.Equal(t, 8, soil.Priority)
}

func TestSynthesize_Alkaline(t *testing.T) {
	r := optimal()
	r.SoilPH = 7.6

	got := synth(Input{Reading: r, Crop: profile(t, "maize")})

	require.Len(t, got, 1)
	assert.Equal(t, types.CategorySoil, got[0].Category)
	assert.Equal(t, 7, got[0].Priority)
}

func TestSynthesize_Weather(t *testing.T) {
	dry := []types.ForecastDay{
		{Day: "Mon", RainChance: 10},
		{Day: "Tue", RainChance: 0},
		{Day: "Wed", RainChance: 5, RainVolume: 25},
		{Day: "Thu", RainChance: 15},
		{Day: "Fri", RainChance: 19},
	}

	got := synth(Input{
		Reading:  optimal(),
		Weather:  &types.WeatherSnapshot{WindSpeed: 16},
		Forecast: dry,
		Crop:     profile(t, "maize"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "Strong winds", got[0].Title)
	assert.Equal(t, "Prolonged dry spell", got[1].Title)
	assert.Equal(t, 5, got[1].Data["dry_days"])
	assert.Equal(t, "Heavy rain expected", got[2].Title)
	assert.Equal(t, "Wed", got[2].Data["day"])
}

func TestSynthesize_RainDelayPreference(t *testing.T) {
	forecast := []types.ForecastDay{{Day: "Mon", RainChance: 80, RainVolume: 30}}
	off := types.DefaultPreferences()
	off.RainDelayIrrigation = false

	with := synth(Input{Reading: optimal(), Forecast: forecast, Crop: profile(t, "maize")})
	without := synth(Input{Reading: optimal(), Forecast: forecast, Crop: profile(t, "maize"), Preferences: &off})

	require.Len(t, with, 1)
	assert.Equal(t, types.SeverityInfo, with[0].Type)
	assert.Empty(t, without)
}

func TestSynthesize_Trends(t *testing.T) {
	latest := optimal()
	latest.Humidity = 45
	latest.Temperature = 29
	oldest := optimal()
	oldest.Humidity = 57
	oldest.Temperature = 21
	oldest.Timestamp = now.Add(-2 * time.Hour)

	got := synth(Input{
		Reading: latest,
		History: []types.Reading{latest, oldest},
		Crop:    profile(t, "maize"),
	})

	require.Len(t, got, 2)
	assert.Equal(t, []types.Category{types.CategoryTrend, types.CategoryTrend}, categories(got))
	assert.Equal(t, "Humidity dropping fast", got[0].Title)
	assert.InDelta(t, -6.0, got[0].Data["trend"], 1e-9)
	assert.Equal(t, "Warming trend", got[1].Title)
}

func TestSynthesize_TrendNeedsHistory(t *testing.T) {
	got := synth(Input{Reading: optimal(), History: []types.Reading{optimal()}, Crop: profile(t, "maize")})
	assert.Empty(t, got)
}

func TestSynthesize_Disease(t *testing.T) {
	r := types.Reading{SensorID: "S1", Timestamp: now, Humidity: 78, Temperature: 31, SoilPH: 6.0}

	got := synth(Input{Reading: r, Crop: profile(t, "rice")})
	require.Len(t, got, 1)
	assert.Equal(t, types.CategoryDisease, got[0].Category)
	assert.Equal(t, 7, got[0].Priority)

	tomato := types.Reading{SensorID: "S1", Timestamp: now, Humidity: 69.9, Temperature: 26, SoilPH: 6.5}
	assert.Empty(t, synth(Input{Reading: tomato, Crop: profile(t, "tomatoes")}))

	tomato.Humidity = 70.1
	got = synth(Input{Reading: tomato, Crop: profile(t, "tomatoes")})
	require.Len(t, got, 1)
	assert.Equal(t, types.CategoryDisease, got[0].Category)
	assert.Equal(t, 8, got[0].Priority)
}

func TestSynthesize_UnknownCropHasNoDiseaseRules(t *testing.T) {
	fallback, found := crops.New().Lookup("sorghum")
	require.False(t, found)

	r := types.Reading{SensorID: "S1", Timestamp: now, Humidity: 58, Temperature: 29, SoilPH: 6.5}
	assert.Empty(t, synth(Input{Reading: r, Crop: fallback}))
}

func history(n int, humidity float64) []types.Reading {
	out := make([]types.Reading, n)
	for i := range out {
		out[i] = types.Reading{
			SensorID:    "S1",
			Timestamp:   now.Add(-time.Duration(i) * time.Hour),
			Humidity:    humidity,
			Temperature: 25,
			SoilPH:      6.5,
		}
	}
	return out
}

func TestSynthesize_IrrigationPlan(t *testing.T) {
	h := history(12, 36)
	r := h[0]
	r.Humidity = 42
	h[0] = r

	got := synth(Input{
		Reading:  r,
		History:  h,
		Forecast: []types.ForecastDay{{RainChance: 10}, {RainChance: 20}, {RainChance: 30}},
		Crop:     profile(t, "maize"),
	})

	require.Len(t, got, 1)
	plan := got[0]
	assert.Equal(t, types.CategoryPlanning, plan.Category)
	assert.Equal(t, types.SeverityInfo, plan.Type)
	assert.Equal(t, 4, plan.Priority)
	assert.Equal(t, 7, plan.Data["water_l_m2"]) // 2 × (40 − 36.5)
	assert.Equal(t, "Irrigate 7 L/m² within 12h", plan.Action)
}

func TestSynthesize_IrrigationPlanShortForecast(t *testing.T) {
	h := history(12, 36)
	r := h[0]
	r.Humidity = 42
	h[0] = r

	got := synth(Input{
		Reading:  r,
		History:  h,
		Forecast: []types.ForecastDay{{RainChance: 60}},
		Crop:     profile(t, "maize"),
	})

	require.Len(t, got, 1)
	assert.Equal(t, types.CategoryPlanning, got[0].Category)
	assert.InDelta(t, 20.0, got[0].Data["rain_chance"], 1e-9) // 60 / 3 periods
}

func TestSynthesize_IrrigationPlanSkipped(t *testing.T) {
	t.Run("short history", func(t *testing.T) {
		h := history(11, 30)
		r := h[0]
		r.Humidity = 45
		h[0] = r
		got := synth(Input{Reading: r, History: h, Crop: profile(t, "maize")})
		assert.Empty(t, got)
	})

	t.Run("rain expected", func(t *testing.T) {
		h := history(12, 36)
		r := h[0]
		r.Humidity = 45
		h[0] = r
		got := synth(Input{Reading: r, History: h, Forecast: []types.ForecastDay{{RainChance: 30}}, Crop: profile(t, "maize")})
		assert.Empty(t, got)
	})
}

func TestSynthesize_OrderedByUrgency(t *testing.T) {
	r := types.Reading{SensorID: "S1", Timestamp: now, Humidity: 20, Temperature: 40, SoilPH: 5.0}

	got := synth(Input{Reading: r, Weather: &types.WeatherSnapshot{WindSpeed: 20}, Crop: profile(t, "maize")})

	require.Len(t, got, 4)
	assert.Equal(t, types.SeverityCritical, got[0].Type)
	assert.Equal(t, types.SeverityCritical, got[1].Type)
	assert.Equal(t, types.CategoryIrrigation, got[0].Category)
	assert.Equal(t, types.CategoryTemperature, got[1].Category)
	assert.Equal(t, types.CategorySoil, got[2].Category)
	assert.Equal(t, types.CategoryWeather, got[3].Category)
}

func TestLimeAndWater(t *testing.T) {
	s := New(DefaultConfig())

	assert.Equal(t, 250, s.LimeRequirement(5.0, 5.5))
	assert.Equal(t, 0, s.WaterAmount(45, 40))
	assert.Equal(t, 20, s.WaterAmount(30, 40))
}
