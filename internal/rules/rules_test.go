package rules

import (
	"testing"
	"time"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(humidity, temperature, ph float64) types.Reading {
	return types.Reading{
		SensorID:    "s1",
		Timestamp:   time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Humidity:    humidity,
		Temperature: temperature,
		SoilPH:      ph,
	}
}

func TestBounds_Classify(t *testing.T) {
	b := Bounds{CriticalLow: 30, WarningLow: 40, WarningHigh: 75, CriticalHigh: 85}

	cases := []struct {
		value     float64
		ok        bool
		severity  types.Severity
		threshold float64
		direction types.Direction
	}{
		{10, true, types.SeverityCritical, 30, types.DirectionLow},
		{29.9, true, types.SeverityCritical, 30, types.DirectionLow},
		{30, true, types.SeverityWarning, 40, types.DirectionLow},
		{39.9, true, types.SeverityWarning, 40, types.DirectionLow},
		{40, false, "", 0, ""},
		{60, false, "", 0, ""},
		{75, false, "", 0, ""},
		{75.1, true, types.SeverityWarning, 75, types.DirectionHigh},
		{85, true, types.SeverityWarning, 75, types.DirectionHigh},
		{85.1, true, types.SeverityCritical, 85, types.DirectionHigh},
	}
	for _, c := range cases {
		f, ok := b.Classify(types.MetricHumidity, c.value)
		require.Equal(t, c.ok, ok, "value %v", c.value)
		if !ok {
			continue
		}
		assert.Equal(t, c.severity, f.Severity, "value %v", c.value)
		assert.Equal(t, c.threshold, f.Threshold, "value %v", c.value)
		assert.Equal(t, c.direction, f.Direction, "value %v", c.value)
		assert.Equal(t, c.value, f.Value)
	}
}

func TestEvaluate_CriticalHumidity(t *testing.T) {
	findings := Evaluate(reading(25, 25, 6.5), Default())
	require.Len(t, findings, 1)
	assert.Equal(t, types.MetricHumidity, findings[0].Metric)
	assert.Equal(t, types.SeverityCritical, findings[0].Severity)

	i, ok := FirstCritical(findings)
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestEvaluate_OneFindingPerMetricInOrder(t *testing.T) {
	battery := 10.0
	r := reading(90, 5, 4.0)
	r.BatteryLevel = &battery

	findings := Evaluate(r, Default())
	require.Len(t, findings, 4)
	assert.Equal(t, []types.Metric{
		types.MetricHumidity, types.MetricTemperature, types.MetricSoilPH, types.MetricBattery,
	}, []types.Metric{findings[0].Metric, findings[1].Metric, findings[2].Metric, findings[3].Metric})
	for _, f := range findings {
		assert.Equal(t, types.SeverityCritical, f.Severity)
	}
}

func TestEvaluate_WithinBandYieldsNothing(t *testing.T) {
	assert.Empty(t, Evaluate(reading(55, 25, 6.5), Default()))
}

func TestEvaluate_BatteryTwoTier(t *testing.T) {
	r := reading(55, 25, 6.5)
	level := 25.0
	r.BatteryLevel = &level

	findings := Evaluate(r, Default())
	require.Len(t, findings, 1)
	assert.Equal(t, types.SeverityWarning, findings[0].Severity)

	full := 100.0
	r.BatteryLevel = &full
	assert.Empty(t, Evaluate(r, Default()))
}

func TestEvaluate_Deterministic(t *testing.T) {
	r := reading(35, 36, 7.8)
	assert.Equal(t, Evaluate(r, Default()), Evaluate(r, Default()))
}

func TestForCrop(t *testing.T) {
	profile := types.CropProfile{
		Humidity:    types.Range{Min: 40, Max: 60},
		Temperature: types.Range{Min: 20, Max: 30},
		PH:          types.Range{Min: 5.8, Max: 7.0},
	}
	th := ForCrop(profile)
	assert.InDelta(t, 28.0, th.Humidity.CriticalLow, 1e-9)
	assert.InDelta(t, 78.0, th.Humidity.CriticalHigh, 1e-9)
	assert.InDelta(t, 36.0, th.Temperature.CriticalHigh, 1e-9)
	assert.InDelta(t, 5.3, th.SoilPH.CriticalLow, 1e-9)

	findings := Evaluate(reading(25, 25, 6.5), th)
	require.Len(t, findings, 1)
	assert.Equal(t, types.SeverityCritical, findings[0].Severity)

	assert.Empty(t, Evaluate(reading(50, 25, 6.5), th))
}

func TestForCrop_NegativeMinimumKeepsTierOrder(t *testing.T) {
	th := ForCrop(types.CropProfile{Temperature: types.Range{Min: -5, Max: 10}})
	assert.LessOrEqual(t, th.Temperature.CriticalLow, th.Temperature.WarningLow)

	f, ok := th.Temperature.Classify(types.MetricTemperature, -4.5)
	assert.False(t, ok, "%+v", f)
}

func TestMessage(t *testing.T) {
	msg := Message("s1", types.Finding{
		Metric: types.MetricHumidity, Severity: types.SeverityCritical,
		Value: 25, Threshold: 30, Direction: types.DirectionLow,
	})
	assert.Contains(t, msg, "CRITICAL ALERT")
	assert.Contains(t, msg, "irrigation required")
	assert.Contains(t, msg, "25.0%")
}
