// Package recommend turns a reading, its history, the weather and the crop
// profile into an ordered list of recommendations.
package recommend

import (
	"fmt"
	"math"

	"github.com/ntentasd/nostradamus-advisor/internal/analysis"
	"github.com/ntentasd/nostradamus-advisor/internal/priority"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// Input is everything one synthesis needs. History is ordered most recent
// first and normally starts with Reading. A nil Weather skips the analyses
// that depend on current conditions; nil Preferences means the defaults.
type Input struct {
	Reading     types.Reading
	History     []types.Reading
	Weather     *types.WeatherSnapshot
	Forecast    []types.ForecastDay
	Crop        types.CropProfile
	Preferences *types.FarmerPreferences
}

type Synthesizer struct {
	cfg Config
}

func New(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

type analyzer func(*Synthesizer, Input) []types.Recommendation

var analyses = []analyzer{
	(*Synthesizer).humidity,
	(*Synthesizer).temperature,
	(*Synthesizer).soilPH,
	(*Synthesizer).weather,
	(*Synthesizer).trend,
	(*Synthesizer).disease,
	(*Synthesizer).irrigationPlan,
}

// Synthesize runs every analysis and returns their recommendations ordered
// by urgency.
func (s *Synthesizer) Synthesize(in Input) []types.Recommendation {
	var recs []types.Recommendation
	for _, a := range analyses {
		recs = append(recs, a(s, in)...)
	}
	for i := range recs {
		recs[i].SensorID = in.Reading.SensorID
	}
	return priority.Prioritize(recs)
}

func (s *Synthesizer) humidity(in Input) []types.Recommendation {
	h := in.Reading.Humidity
	band := in.Crop.Humidity

	switch {
	case h < band.Min*s.cfg.CriticalDryFactor:
		return []types.Recommendation{{
			Type:     types.SeverityCritical,
			Category: types.CategoryIrrigation,
			Title:    "Critical drought",
			Message:  fmt.Sprintf("Humidity extremely low (%.1f%%). Soil is very dry.", h),
			Action:   "Irrigate intensively now",
			Priority: 10,
			Data:     map[string]any{"humidity": h, "threshold": band.Min},
		}}
	case h < band.Min:
		rain := nextPeriodRain(in.Forecast)
		if rain > s.cfg.DeferRainChance {
			return []types.Recommendation{{
				Type:     types.SeverityInfo,
				Category: types.CategoryIrrigation,
				Title:    "Wait for rain",
				Message:  fmt.Sprintf("Humidity low (%.1f%%) but rain expected tomorrow (%.0f%%).", h, rain),
				Action:   "Defer irrigation by 24h",
				Priority: 3,
				Data:     map[string]any{"humidity": h, "rain_chance": rain},
			}}
		}
		return []types.Recommendation{{
			Type:     types.SeverityWarning,
			Category: types.CategoryIrrigation,
			Title:    "Irrigation needed",
			Message:  fmt.Sprintf("Humidity low (%.1f%%).", h),
			Action:   "Schedule moderate irrigation",
			Priority: 7,
			Data:     map[string]any{"humidity": h, "optimal_min": band.Min},
		}}
	case h > band.Max*s.cfg.DrainageFactor:
		return []types.Recommendation{{
			Type:     types.SeverityCritical,
			Category: types.CategoryDrainage,
			Title:    "Waterlogging",
			Message:  fmt.Sprintf("Humidity excessive (%.1f%%). Risk of root rot.", h),
			Action:   "Improve drainage immediately",
			Priority: 9,
			Data:     map[string]any{"humidity": h, "threshold": band.Max},
		}}
	}
	return nil
}

// nextPeriodRain is the rain chance of the period after the current one.
func nextPeriodRain(forecast []types.ForecastDay) float64 {
	if len(forecast) < 2 {
		return 0
	}
	return forecast[1].RainChance
}

func (s *Synthesizer) temperature(in Input) []types.Recommendation {
	t := in.Reading.Temperature
	band := in.Crop.Temperature

	switch {
	case t > band.Max*s.cfg.HeatStressFactor:
		action := "Cooling irrigation and artificial shading"
		if in.Weather != nil && in.Weather.WindSpeed > s.cfg.VentilationWind {
			action = "Cooling irrigation and rely on natural ventilation"
		}
		return []types.Recommendation{{
			Type:     types.SeverityCritical,
			Category: types.CategoryTemperature,
			Title:    "Severe heat stress",
			Message:  fmt.Sprintf("Critical temperature (%.1f°C). Crops at risk.", t),
			Action:   action,
			Priority: 10,
			Data:     map[string]any{"temperature": t, "optimal_max": band.Max},
		}}
	case t > band.Max:
		return []types.Recommendation{{
			Type:     types.SeverityWarning,
			Category: types.CategoryTemperature,
			Title:    "High temperature",
			Message:  fmt.Sprintf("Temperature above optimal (%.1f°C).", t),
			Action:   "Increase irrigation frequency",
			Priority: 6,
			Data:     map[string]any{"temperature": t, "optimal_max": band.Max},
		}}
	case t < band.Min*s.cfg.ColdStressFactor:
		return []types.Recommendation{{
			Type:     types.SeverityWarning,
			Category: types.CategoryTemperature,
			Title:    "Low temperature",
			Message:  fmt.Sprintf("Temperature below optimal (%.1f°C). Growth is slowing.", t),
			Action:   "Protect sensitive crops",
			Priority: 5,
			Data:     map[string]any{"temperature": t, "optimal_min": band.Min},
		}}
	}
	return nil
}

func (s *Synthesizer) soilPH(in Input) []types.Recommendation {
	ph := in.Reading.SoilPH
	band := in.Crop.PH

	switch {
	case ph < band.Min:
		lime := s.LimeRequirement(ph, band.Min)
		return []types.Recommendation{{
			Type:     types.SeverityWarning,
			Category: types.CategorySoil,
			Title:    "Soil too acidic",
			Message:  fmt.Sprintf("Low pH (%.1f). Liming required.", ph),
			Action:   fmt.Sprintf("Apply %d kg/ha of lime", lime),
			Priority: 8,
			Data:     map[string]any{"ph": ph, "optimal_min": band.Min, "lime_kg_ha": lime},
		}}
	case ph > band.Max:
		return []types.Recommendation{{
			Type:     types.SeverityWarning,
			Category: types.CategorySoil,
			Title:    "Soil too alkaline",
			Message:  fmt.Sprintf("High pH (%.1f).", ph),
			Action:   "Apply sulfur or acidifying organic matter",
			Priority: 7,
			Data:     map[string]any{"ph": ph, "optimal_max": band.Max},
		}}
	}
	return nil
}

// LimeRequirement is the lime dose in kg/ha that lifts ph to target.
func (s *Synthesizer) LimeRequirement(ph, target float64) int {
	return int(math.Round((target - ph) * s.cfg.LimeKgPerPHUnit))
}

func (s *Synthesizer) weather(in Input) []types.Recommendation {
	var recs []types.Recommendation

	if in.Weather != nil && in.Weather.WindSpeed > s.cfg.StrongWind {
		recs = append(recs, types.Recommendation{
			Type:     types.SeverityWarning,
			Category: types.CategoryWeather,
			Title:    "Strong winds",
			Message:  fmt.Sprintf("Wind at %.1f m/s. Risk of damage.", in.Weather.WindSpeed),
			Action:   "Protect tall crops and greenhouses",
			Priority: 6,
			Data:     map[string]any{"wind_speed": in.Weather.WindSpeed},
		})
	}

	prefs := types.DefaultPreferences()
	if in.Preferences != nil {
		prefs = *in.Preferences
	}
	if prefs.RainDelayIrrigation {
		for _, day := range in.Forecast {
			if day.RainVolume <= s.cfg.HeavyRainMM {
				continue
			}
			recs = append(recs, types.Recommendation{
				Type:     types.SeverityInfo,
				Category: types.CategoryIrrigation,
				Title:    "Heavy rain expected",
				Message:  fmt.Sprintf("%.1fmm expected %s", day.RainVolume, day.Day),
				Action:   "Suspend the irrigation schedule",
				Priority: 4,
				Data:     map[string]any{"day": day.Day, "rain_volume": day.RainVolume},
			})
			break
		}
	}

	dry := 0
	for _, day := range in.Forecast {
		if day.RainChance < s.cfg.DryDayRainChance {
			dry++
		}
	}
	if dry >= s.cfg.DrySpellDays {
		recs = append(recs, types.Recommendation{
			Type:     types.SeverityWarning,
			Category: types.CategoryWeather,
			Title:    "Prolonged dry spell",
			Message:  fmt.Sprintf("%d days without rain expected", dry),
			Action:   "Plan supplemental irrigation",
			Priority: 5,
			Data:     map[string]any{"dry_days": dry},
		})
	}

	return recs
}

func (s *Synthesizer) trend(in Input) []types.Recommendation {
	if len(in.History) < s.cfg.TrendMinHistory {
		return nil
	}

	var recs []types.Recommendation
	if rate := analysis.Trend(in.History, types.MetricHumidity); rate < s.cfg.HumidityDropRate {
		recs = append(recs, types.Recommendation{
			Type:     types.SeverityWarning,
			Category: types.CategoryTrend,
			Title:    "Humidity dropping fast",
			Message:  fmt.Sprintf("Humidity falling %.2f%%/h", -rate),
			Action:   "Monitor closely and prepare irrigation",
			Priority: 6,
			Data:     map[string]any{"trend": rate},
		})
	}
	if rate := analysis.Trend(in.History, types.MetricTemperature); rate > s.cfg.WarmingRate {
		recs = append(recs, types.Recommendation{
			Type:     types.SeverityWarning,
			Category: types.CategoryTrend,
			Title:    "Warming trend",
			Message:  fmt.Sprintf("Temperature rising %.2f°C/h", rate),
			Action:   "Prepare cooling measures",
			Priority: 5,
			Data:     map[string]any{"trend": rate},
		})
	}
	return recs
}

func (s *Synthesizer) disease(in Input) []types.Recommendation {
	var recs []types.Recommendation
	for _, rule := range in.Crop.DiseaseRules {
		if !rule.Matches(in.Reading) {
			continue
		}
		recs = append(recs, types.Recommendation{
			Type:     types.SeverityWarning,
			Category: types.CategoryDisease,
			Title:    rule.Title,
			Message:  rule.Message,
			Action:   rule.Action,
			Priority: rule.Priority,
			Data:     map[string]any{"disease": rule.Disease, "crop": in.Crop.Crop},
		})
	}
	return recs
}

func (s *Synthesizer) irrigationPlan(in Input) []types.Recommendation {
	if len(in.History) < s.cfg.PlanningMinHistory {
		return nil
	}
	avg, ok := analysis.Mean(in.History, types.MetricHumidity)
	if !ok || avg >= in.Crop.Humidity.Min {
		return nil
	}

	rain := s.meanRainChance(in.Forecast)
	if rain >= s.cfg.PlanningRainChance {
		return nil
	}

	water := s.WaterAmount(avg, in.Crop.Humidity.Min)
	return []types.Recommendation{{
		Type:     types.SeverityInfo,
		Category: types.CategoryPlanning,
		Title:    "Irrigation plan",
		Message:  fmt.Sprintf("Average humidity %.1f%%, rain expected %.0f%%", avg, rain),
		Action:   fmt.Sprintf("Irrigate %d L/m² within 12h", water),
		Priority: 4,
		Data:     map[string]any{"avg_humidity": avg, "rain_chance": rain, "water_l_m2": water},
	}}
}

// meanRainChance averages the rain chance over PlanningPeriods forecast
// periods. Missing periods count as dry.
func (s *Synthesizer) meanRainChance(forecast []types.ForecastDay) float64 {
	periods := s.cfg.PlanningPeriods
	if periods <= 0 || len(forecast) == 0 {
		return 0
	}
	var sum float64
	for _, d := range forecast[:min(len(forecast), periods)] {
		sum += d.RainChance
	}
	return sum / float64(periods)
}

// WaterAmount is the irrigation volume in L/m² that closes the gap between
// avg and the optimal minimum humidity.
func (s *Synthesizer) WaterAmount(avg, optimalMin float64) int {
	return int(math.Round(s.cfg.WaterLitresPerUnit * math.Max(0, optimalMin-avg)))
}
