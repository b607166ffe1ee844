package recommend

// Config holds the tunables of the analyses. Factors multiply the crop's
// optimal bounds; rates are units per hour.
type Config struct {
	CriticalDryFactor  float64
	DrainageFactor     float64
	DeferRainChance    float64
	HeatStressFactor   float64
	ColdStressFactor   float64
	VentilationWind    float64
	StrongWind         float64
	HeavyRainMM        float64
	DryDayRainChance   float64
	DrySpellDays       int
	HumidityDropRate   float64
	WarmingRate        float64
	TrendMinHistory    int
	PlanningMinHistory int
	PlanningPeriods    int
	PlanningRainChance float64
	LimeKgPerPHUnit    float64
	WaterLitresPerUnit float64
}

func DefaultConfig() Config {
	return Config{
		CriticalDryFactor:  0.7,
		DrainageFactor:     1.3,
		DeferRainChance:    50,
		HeatStressFactor:   1.2,
		ColdStressFactor:   0.8,
		VentilationWind:    5,
		StrongWind:         15,
		HeavyRainMM:        20,
		DryDayRainChance:   20,
		DrySpellDays:       5,
		HumidityDropRate:   -5,
		WarmingRate:        3,
		TrendMinHistory:    2,
		PlanningMinHistory: 12,
		PlanningPeriods:    3,
		PlanningRainChance: 30,
		LimeKgPerPHUnit:    500,
		WaterLitresPerUnit: 2,
	}
}
