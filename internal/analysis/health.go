package analysis

import (
	"math"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// Penalty per unit outside the optimal band.
const (
	HumidityWeight    = 2.0
	TemperatureWeight = 1.5
	PHWeight          = 10.0
)

type Status string

const (
	StatusExcellent Status = "Excellent"
	StatusGood      Status = "Good"
	StatusModerate  Status = "Moderate"
	StatusLow       Status = "Low"
	StatusCritical  Status = "Critical"
)

// HealthScore rates a reading against the crop's optimal bands, from 0 to 100.
func HealthScore(r types.Reading, crop types.CropProfile) int {
	score := 100.0
	score -= penalty(crop.Humidity, r.Humidity, HumidityWeight)
	score -= penalty(crop.Temperature, r.Temperature, TemperatureWeight)
	score -= penalty(crop.PH, r.SoilPH, PHWeight)

	if math.IsNaN(score) {
		return 0
	}
	score = math.Round(score)
	return int(math.Max(0, math.Min(100, score)))
}

func penalty(band types.Range, v, weight float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return band.Deviation(v) * weight
}

func StatusOf(score int) Status {
	switch {
	case score >= 80:
		return StatusExcellent
	case score >= 60:
		return StatusGood
	case score >= 40:
		return StatusModerate
	case score >= 20:
		return StatusLow
	default:
		return StatusCritical
	}
}
