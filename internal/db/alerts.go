package db

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

func (db *DB) InsertAlert(ctx context.Context, a types.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := db.Data.Query(`
INSERT INTO alerts (sensor_id, alert_id, type, severity, message, value, threshold, sms_status, resolved, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, a.SensorID, gocql.UUID(a.AlertID), string(a.Metric), string(a.Severity), a.Message,
		a.Value, a.Threshold, string(a.SMSStatus), a.Resolved, a.Timestamp,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	observeWrite("insert_alert", start)

	return nil
}

func (db *DB) UpdateAlertStatus(ctx context.Context, sensorID string, alertID uuid.UUID, status types.SMSStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := db.Data.Query(`
UPDATE alerts SET sms_status = ?
WHERE sensor_id = ? AND alert_id = ?
`, string(status), sensorID, gocql.UUID(alertID)).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	observeWrite("update_alert", start)

	return nil
}

// ResolveAlert marks an alert resolved. Resolving twice keeps the first time.
func (db *DB) ResolveAlert(ctx context.Context, sensorID string, alertID uuid.UUID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	var wasResolved bool

	start := time.Now()
	applied, err := db.Data.Query(`
UPDATE alerts SET resolved = true, resolved_at = ?
WHERE sensor_id = ? AND alert_id = ?
IF resolved = false
`, at, sensorID, gocql.UUID(alertID)).WithContext(ctx).ScanCAS(&wasResolved)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return ErrAlertNotFound
		}
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	observeWrite("resolve_alert", start)

	if !applied && !wasResolved {
		// no previous value: the row may not exist
		var resolved bool
		err := db.Data.Query(`
SELECT resolved FROM alerts WHERE sensor_id = ? AND alert_id = ?
`, sensorID, gocql.UUID(alertID)).WithContext(ctx).Scan(&resolved)
		if errors.Is(err, gocql.ErrNotFound) {
			return ErrAlertNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to resolve alert: %w", err)
		}
	}

	return nil
}

// ListAlerts returns a sensor's alerts, newest first.
func (db *DB) ListAlerts(ctx context.Context, sensorID string, unresolvedOnly bool) ([]types.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	start := time.Now()
	iter := db.Data.Query(`
SELECT alert_id, type, severity, message, value, threshold, sms_status, resolved, resolved_at, timestamp
FROM alerts
WHERE sensor_id = ?
`, sensorID).WithContext(ctx).Iter()

	var (
		out                              []types.Alert
		id                               gocql.UUID
		metric, severity, msg, smsStatus string
		value, threshold                 float64
		resolved                         bool
		resolvedAt, ts                   time.Time
	)
	for iter.Scan(&id, &metric, &severity, &msg, &value, &threshold, &smsStatus, &resolved, &resolvedAt, &ts) {
		if unresolvedOnly && resolved {
			continue
		}
		out = append(out, types.Alert{
			AlertID:    uuid.UUID(id),
			SensorID:   sensorID,
			Metric:     types.Metric(metric),
			Severity:   types.Severity(severity),
			Message:    msg,
			Value:      value,
			Threshold:  threshold,
			SMSStatus:  types.SMSStatus(smsStatus),
			Resolved:   resolved,
			ResolvedAt: resolvedAt,
			Timestamp:  ts,
		})
		resolvedAt = time.Time{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	observeRead("list_alerts", start)

	slices.SortFunc(out, func(a, b types.Alert) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	return out, nil
}
