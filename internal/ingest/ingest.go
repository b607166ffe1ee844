// Package ingest is the fast path every incoming reading goes through:
// validate, persist, classify, record alerts and, at most once per cooldown
// window, notify someone.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/cooldown"
	"github.com/ntentasd/nostradamus-advisor/internal/crops"
	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
	"github.com/ntentasd/nostradamus-advisor/internal/rules"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ReadingStore interface {
	InsertReading(ctx context.Context, r types.Reading) error
}

type ReadingCache interface {
	StoreReading(ctx context.Context, r types.Reading) error
}

type AlertStore interface {
	InsertAlert(ctx context.Context, a types.Alert) error
	UpdateAlertStatus(ctx context.Context, sensorID string, alertID uuid.UUID, status types.SMSStatus) error
}

type CropResolver interface {
	SensorCrop(ctx context.Context, sensorID string) (string, error)
}

// Notifier delivers an outbound alert to operators.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert types.Alert) error
}

// Ingestor wires the collaborators of the fast path. Store, Crops and
// Cooldown are required; the rest may be nil.
type Ingestor struct {
	Store    ReadingStore
	History  ReadingCache
	Alerts   AlertStore
	Sensors  CropResolver
	Crops    *crops.KnowledgeBase
	Cooldown cooldown.Acquirer
	Notifier Notifier
	Window   time.Duration
	Now      func() time.Time
	Logger   zerolog.Logger
}

type Result struct {
	SensorID   string          `json:"sensor_id"`
	Findings   []types.Finding `json:"findings"`
	Alerts     []types.Alert   `json:"alerts"`
	Dispatched bool            `json:"dispatched"`
	Suppressed bool            `json:"suppressed"`
	CropType   string          `json:"crop_type,omitempty"`
}

func (in *Ingestor) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

func (in *Ingestor) window() time.Duration {
	if in.Window > 0 {
		return in.Window
	}
	return cooldown.DefaultWindow
}

// Ingest processes one reading. source labels the transport it came from.
func (in *Ingestor) Ingest(ctx context.Context, r types.Reading, source string) (*Result, error) {
	ctx, span := otel.Tracer("nostradamus-ingest").Start(ctx, "ingest.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("sensor.id", r.SensorID),
		attribute.String("ingest.source", source),
	)

	if err := r.Validate(); err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues("invalid", source).Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := in.Store.InsertReading(ctx, r); err != nil {
		metrics.ReadingsIngestedTotal.WithLabelValues("error", source).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("persist reading: %w", err)
	}

	if in.History != nil {
		if err := in.History.StoreReading(ctx, r); err != nil {
			in.Logger.Warn().Err(err).Str("sensor_id", r.SensorID).Msg("failed to cache reading")
		}
	}

	crop, thresholds := in.thresholds(ctx, r.SensorID)
	findings := rules.Evaluate(r, thresholds)

	res := &Result{SensorID: r.SensorID, Findings: findings, CropType: crop}
	for _, f := range findings {
		metrics.FindingsTotal.WithLabelValues(string(f.Metric), string(f.Severity)).Inc()
		res.Alerts = append(res.Alerts, in.record(ctx, r.SensorID, f, r.Timestamp))
	}

	// Alerts line up one to one with findings.
	if critical, ok := rules.FirstCritical(findings); ok {
		if in.Cooldown.TryAcquire(r.SensorID, in.now(), in.window()) {
			metrics.CooldownDecisionsTotal.WithLabelValues("acquired").Inc()
			res.Dispatched = true
			res.Alerts[critical].SMSStatus = in.dispatch(ctx, res.Alerts[critical])
		} else {
			metrics.CooldownDecisionsTotal.WithLabelValues("suppressed").Inc()
			res.Suppressed = true
			in.Logger.Debug().Str("sensor_id", r.SensorID).Msg("critical alert suppressed by cooldown")
		}
	}

	metrics.ReadingsIngestedTotal.WithLabelValues("ok", source).Inc()
	span.SetAttributes(
		attribute.Int("ingest.findings", len(findings)),
		attribute.Bool("ingest.dispatched", res.Dispatched),
	)
	span.SetStatus(codes.Ok, "")

	return res, nil
}

// thresholds picks the crop-specific tables when the sensor's crop is known.
func (in *Ingestor) thresholds(ctx context.Context, sensorID string) (string, rules.Thresholds) {
	if in.Sensors == nil {
		return "", rules.Default()
	}
	crop, err := in.Sensors.SensorCrop(ctx, sensorID)
	if err != nil {
		in.Logger.Warn().Err(err).Str("sensor_id", sensorID).Msg("failed to resolve sensor crop, using default thresholds")
		return "", rules.Default()
	}
	if crop == "" {
		return "", rules.Default()
	}
	profile, found := in.Crops.Lookup(crop)
	if !found {
		return "", rules.Default()
	}
	return profile.Crop, rules.ForCrop(profile)
}

func (in *Ingestor) record(ctx context.Context, sensorID string, f types.Finding, at time.Time) types.Alert {
	a := types.Alert{
		AlertID:   uuid.New(),
		SensorID:  sensorID,
		Metric:    f.Metric,
		Severity:  f.Severity,
		Message:   rules.Message(sensorID, f),
		Value:     f.Value,
		Threshold: f.Threshold,
		SMSStatus: types.SMSPending,
		Timestamp: at,
	}
	if in.Alerts != nil {
		if err := in.Alerts.InsertAlert(ctx, a); err != nil {
			in.Logger.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to record alert")
		}
	}
	return a
}

// dispatch hands the alert to the notifier. A failed delivery does not give
// the cooldown back.
func (in *Ingestor) dispatch(ctx context.Context, a types.Alert) types.SMSStatus {
	if in.Notifier == nil {
		return types.SMSPending
	}

	status := types.SMSSent
	if err := in.Notifier.Notify(ctx, a); err != nil {
		status = types.SMSFailed
		in.Logger.Error().Err(err).
			Str("sensor_id", a.SensorID).
			Str("notifier", in.Notifier.Name()).
			Msg("failed to dispatch alert")
	}
	metrics.AlertsDispatchedTotal.WithLabelValues(in.Notifier.Name(), string(status)).Inc()

	if in.Alerts != nil {
		if err := in.Alerts.UpdateAlertStatus(ctx, a.SensorID, a.AlertID, status); err != nil {
			in.Logger.Error().Err(err).Str("sensor_id", a.SensorID).Msg("failed to update alert status")
		}
	}
	return status
}
