// Package types
package types

import (
	"time"

	"github.com/google/uuid"
)

type Field struct {
	FieldID   uuid.UUID  `json:"field_id"`
	FieldName string     `json:"field_name"`
	CropType  string     `json:"crop_type,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
}

type Sensor struct {
	SensorID   string     `json:"sensor_id"`
	SensorName string     `json:"sensor_name"`
	FieldID    *uuid.UUID `json:"field_id,omitempty"`
	CropType   string     `json:"crop_type,omitempty"`
}

type Aggregate struct {
	Metric    Metric    `json:"metric"`
	Avg       float64   `json:"avg"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAggregate summarises one metric over a set of readings. Readings
// without a value for the metric are skipped.
func NewAggregate(readings []Reading, metric Metric, at time.Time) Aggregate {
	agg := Aggregate{Metric: metric, Timestamp: at}
	for _, r := range readings {
		v, ok := r.Value(metric)
		if !ok {
			continue
		}
		if agg.Count == 0 || v < agg.Min {
			agg.Min = v
		}
		if agg.Count == 0 || v > agg.Max {
			agg.Max = v
		}
		agg.Avg += v
		agg.Count++
	}
	if agg.Count > 0 {
		agg.Avg /= float64(agg.Count)
	}
	return agg
}

type SMSStatus string

const (
	SMSPending SMSStatus = "pending"
	SMSSent    SMSStatus = "sent"
	SMSFailed  SMSStatus = "failed"
)

// Alert is the audit record of a finding raised during ingestion.
type Alert struct {
	AlertID    uuid.UUID `json:"alert_id"`
	SensorID   string    `json:"sensor_id"`
	Metric     Metric    `json:"type"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	SMSStatus  SMSStatus `json:"sms_status"`
	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
	Timestamp  time.Time `json:"timestamp"`
}
