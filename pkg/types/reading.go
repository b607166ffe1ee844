package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type Metric string

const (
	MetricHumidity    Metric = "humidity"
	MetricTemperature Metric = "temperature"
	MetricSoilPH      Metric = "soil_ph"
	MetricBattery     Metric = "battery"
)

var ErrInvalidMetric = fmt.Errorf("invalid metric")

func ToMetric(s string) (Metric, error) {
	switch s {
	case "humidity":
		return MetricHumidity, nil
	case "temperature":
		return MetricTemperature, nil
	case "soil_ph", "ph", "ph_level":
		return MetricSoilPH, nil
	case "battery", "battery_level":
		return MetricBattery, nil
	default:
		return "", ErrInvalidMetric
	}
}

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reading is a single sample reported by a field sensor.
type Reading struct {
	SensorID     string    `json:"sensor_id"`
	Timestamp    time.Time `json:"timestamp"`
	Humidity     float64   `json:"humidity"`
	Temperature  float64   `json:"temperature"`
	SoilPH       float64   `json:"soil_ph"`
	BatteryLevel *float64  `json:"battery_level,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// Value returns the reading's value for metric. The second result is false
// when the metric is not carried by the reading.
func (r Reading) Value(metric Metric) (float64, bool) {
	switch metric {
	case MetricHumidity:
		return r.Humidity, true
	case MetricTemperature:
		return r.Temperature, true
	case MetricSoilPH:
		return r.SoilPH, true
	case MetricBattery:
		if r.BatteryLevel == nil {
			return 0, false
		}
		return *r.BatteryLevel, true
	default:
		return 0, false
	}
}

var ErrInvalidReading = errors.New("invalid reading")

type InvalidReadingError struct {
	SensorID string
	Field    string
	Value    float64
	Reason   string
}

func (e *InvalidReadingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid reading for sensor '%s': %s %s", e.SensorID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid reading for sensor '%s': %s=%v out of range", e.SensorID, e.Field, e.Value)
}

func (e *InvalidReadingError) Is(target error) bool {
	if target == ErrInvalidReading {
		return true
	}
	_, ok := target.(*InvalidReadingError)
	return ok
}

// Validate rejects readings that cannot enter evaluation.
func (r Reading) Validate() error {
	if r.SensorID == "" {
		return &InvalidReadingError{Field: "sensor_id", Reason: "is required"}
	}
	if r.Timestamp.IsZero() {
		return &InvalidReadingError{SensorID: r.SensorID, Field: "timestamp", Reason: "is required"}
	}
	if !inRange(r.Humidity, 0, 100) {
		return &InvalidReadingError{SensorID: r.SensorID, Field: "humidity", Value: r.Humidity}
	}
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return &InvalidReadingError{SensorID: r.SensorID, Field: "temperature", Value: r.Temperature}
	}
	if !inRange(r.SoilPH, 0, 14) {
		return &InvalidReadingError{SensorID: r.SensorID, Field: "soil_ph", Value: r.SoilPH}
	}
	if r.BatteryLevel != nil && !inRange(*r.BatteryLevel, 0, 100) {
		return &InvalidReadingError{SensorID: r.SensorID, Field: "battery_level", Value: *r.BatteryLevel}
	}
	if r.Location != nil && (!inRange(r.Location.Lat, -90, 90) || !inRange(r.Location.Lon, -180, 180)) {
		return &InvalidReadingError{SensorID: r.SensorID, Field: "location", Reason: "has invalid coordinates"}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: critical 3, warning 2, info 1, unknown 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

type Direction string

const (
	DirectionLow  Direction = "low"
	DirectionHigh Direction = "high"
)

// Finding is one metric classified against its thresholds.
type Finding struct {
	Metric    Metric    `json:"metric"`
	Severity  Severity  `json:"severity"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
}
