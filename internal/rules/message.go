package rules

import (
	"fmt"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

var units = map[types.Metric]string{
	types.MetricHumidity:    "%",
	types.MetricTemperature: "°C",
	types.MetricSoilPH:      "",
	types.MetricBattery:     "%",
}

// Message renders a finding as the short text sent to operators.
func Message(sensorID string, f types.Finding) string {
	label := "ALERT"
	if f.Severity == types.SeverityCritical {
		label = "CRITICAL ALERT"
	}
	return fmt.Sprintf("%s: sensor %s %s %s (%.1f%s, threshold %.1f%s)",
		label, sensorID, f.Metric, advice(f), f.Value, units[f.Metric], f.Threshold, units[f.Metric])
}

func advice(f types.Finding) string {
	switch {
	case f.Metric == types.MetricHumidity && f.Direction == types.DirectionLow:
		return "too low, irrigation required"
	case f.Metric == types.MetricHumidity:
		return "too high, check drainage"
	case f.Metric == types.MetricTemperature && f.Direction == types.DirectionHigh:
		return "too high, heat stress"
	case f.Metric == types.MetricTemperature:
		return "too low, cold stress"
	case f.Metric == types.MetricSoilPH && f.Direction == types.DirectionLow:
		return "too acidic"
	case f.Metric == types.MetricSoilPH:
		return "too alkaline"
	case f.Metric == types.MetricBattery:
		return "low, recharge sensor"
	default:
		return string(f.Direction)
	}
}
