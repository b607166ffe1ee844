package types

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Deviation is how far v lies outside the range, zero when inside.
func (r Range) Deviation(v float64) float64 {
	switch {
	case v < r.Min:
		return r.Min - v
	case v > r.Max:
		return v - r.Max
	default:
		return 0
	}
}

type GrowthStage struct {
	Name         string  `json:"name"`
	DurationDays int     `json:"duration_days"`
	WaterDemand  float64 `json:"water_demand"`
}

// DiseaseRule fires when both humidity and temperature strictly exceed
// their limits.
type DiseaseRule struct {
	Disease        string  `json:"disease"`
	MinHumidity    float64 `json:"min_humidity"`
	MinTemperature float64 `json:"min_temperature"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	Action         string  `json:"action"`
	Priority       int     `json:"priority"`
}

func (d DiseaseRule) Matches(r Reading) bool {
	return r.Humidity > d.MinHumidity && r.Temperature > d.MinTemperature
}

type CropProfile struct {
	Crop               string        `json:"crop"`
	Humidity           Range         `json:"optimal_humidity"`
	Temperature        Range         `json:"optimal_temperature"`
	PH                 Range         `json:"optimal_ph"`
	WaterRequirementMM float64       `json:"water_requirement_mm"`
	GrowthStages       []GrowthStage `json:"growth_stages"`
	DiseaseRules       []DiseaseRule `json:"disease_rules,omitempty"`
}

// SeasonDays is the total length of the growth stages.
func (c CropProfile) SeasonDays() int {
	days := 0
	for _, s := range c.GrowthStages {
		days += s.DurationDays
	}
	return days
}

// StageAt returns the growth stage a crop planted daysSincePlanting days ago
// is in. The last stage is returned once the season is over.
func (c CropProfile) StageAt(daysSincePlanting int) (GrowthStage, bool) {
	if len(c.GrowthStages) == 0 || daysSincePlanting < 0 {
		return GrowthStage{}, false
	}
	elapsed := 0
	for _, s := range c.GrowthStages {
		elapsed += s.DurationDays
		if daysSincePlanting < elapsed {
			return s, true
		}
	}
	return c.GrowthStages[len(c.GrowthStages)-1], true
}
