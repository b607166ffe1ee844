// Package rules classifies readings against tiered thresholds.
package rules

import (
	"math"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// Bounds are the four tiers of one metric, ordered
// CriticalLow <= WarningLow <= WarningHigh <= CriticalHigh. A tier that does
// not apply is set to the matching infinity.
type Bounds struct {
	CriticalLow  float64 `json:"critical_low"`
	WarningLow   float64 `json:"warning_low"`
	WarningHigh  float64 `json:"warning_high"`
	CriticalHigh float64 `json:"critical_high"`
}

// LowOnly builds the two-tier bounds used for metrics that only go bad in
// one direction, such as battery level.
func LowOnly(critical, warning float64) Bounds {
	return Bounds{
		CriticalLow:  critical,
		WarningLow:   warning,
		WarningHigh:  math.Inf(1),
		CriticalHigh: math.Inf(1),
	}
}

// Classify returns the finding for v, if any. Critical bounds are checked
// first so a value never yields both a warning and a critical finding.
func (b Bounds) Classify(metric types.Metric, v float64) (types.Finding, bool) {
	f := types.Finding{Metric: metric, Value: v}
	switch {
	case v < b.CriticalLow:
		f.Severity, f.Threshold, f.Direction = types.SeverityCritical, b.CriticalLow, types.DirectionLow
	case v > b.CriticalHigh:
		f.Severity, f.Threshold, f.Direction = types.SeverityCritical, b.CriticalHigh, types.DirectionHigh
	case v < b.WarningLow:
		f.Severity, f.Threshold, f.Direction = types.SeverityWarning, b.WarningLow, types.DirectionLow
	case v > b.WarningHigh:
		f.Severity, f.Threshold, f.Direction = types.SeverityWarning, b.WarningHigh, types.DirectionHigh
	default:
		return types.Finding{}, false
	}
	return f, true
}

type Thresholds struct {
	Humidity    Bounds `json:"humidity"`
	Temperature Bounds `json:"temperature"`
	SoilPH      Bounds `json:"soil_ph"`
	Battery     Bounds `json:"battery"`
}

// Default returns the generic thresholds applied when a sensor's crop is
// not known.
func Default() Thresholds {
	return Thresholds{
		Humidity:    Bounds{CriticalLow: 30, WarningLow: 40, WarningHigh: 75, CriticalHigh: 85},
		Temperature: Bounds{CriticalLow: 10, WarningLow: 15, WarningHigh: 35, CriticalHigh: 38},
		SoilPH:      Bounds{CriticalLow: 5.0, WarningLow: 5.5, WarningHigh: 7.5, CriticalHigh: 8.0},
		Battery:     LowOnly(15, 30),
	}
}

// ForCrop derives thresholds from a crop's optimal ranges. The optimal band
// is the warning band; critical bounds sit at the same multiples the
// recommendation engine uses for its critical advice.
func ForCrop(p types.CropProfile) Thresholds {
	return Thresholds{
		Humidity: Bounds{
			CriticalLow:  math.Min(p.Humidity.Min*0.7, p.Humidity.Min),
			WarningLow:   p.Humidity.Min,
			WarningHigh:  p.Humidity.Max,
			CriticalHigh: math.Max(p.Humidity.Max*1.3, p.Humidity.Max),
		},
		Temperature: Bounds{
			CriticalLow:  math.Min(p.Temperature.Min*0.8, p.Temperature.Min),
			WarningLow:   p.Temperature.Min,
			WarningHigh:  p.Temperature.Max,
			CriticalHigh: math.Max(p.Temperature.Max*1.2, p.Temperature.Max),
		},
		SoilPH: Bounds{
			CriticalLow:  p.PH.Min - 0.5,
			WarningLow:   p.PH.Min,
			WarningHigh:  p.PH.Max,
			CriticalHigh: p.PH.Max + 0.5,
		},
		Battery: Default().Battery,
	}
}

// Evaluate classifies every metric of the reading. Findings come back in
// the order humidity, temperature, soil pH, battery; metrics inside their
// band produce nothing.
func Evaluate(r types.Reading, t Thresholds) []types.Finding {
	checks := []struct {
		metric types.Metric
		bounds Bounds
	}{
		{types.MetricHumidity, t.Humidity},
		{types.MetricTemperature, t.Temperature},
		{types.MetricSoilPH, t.SoilPH},
		{types.MetricBattery, t.Battery},
	}

	var findings []types.Finding
	for _, c := range checks {
		v, ok := r.Value(c.metric)
		if !ok {
			continue
		}
		if f, ok := c.bounds.Classify(c.metric, v); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// FirstCritical returns the index of the first critical finding in
// evaluation order.
func FirstCritical(findings []types.Finding) (int, bool) {
	for i, f := range findings {
		if f.Severity == types.SeverityCritical {
			return i, true
		}
	}
	return 0, false
}
