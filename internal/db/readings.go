package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/inf.v0"
)

// How far back GetLastReadings walks day buckets.
const lookbackDays = 7

func bucketOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// buckets lists the day buckets covering [from, to], newest first.
func buckets(from, to time.Time) []time.Time {
	start, end := bucketOf(from), bucketOf(to)
	var out []time.Time
	for date := end; !date.Before(start); date = date.Add(-24 * time.Hour) {
		out = append(out, date)
	}
	return out
}

func (db *DB) InsertReading(ctx context.Context, r types.Reading) error {
	ctx, span := otel.Tracer("nostradamus-db").Start(ctx, "db.InsertReading")
	defer span.End()
	span.SetAttributes(attribute.String("sensor.id", r.SensorID))

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	var lat, lon *float64
	if r.Location != nil {
		lat, lon = &r.Location.Lat, &r.Location.Lon
	}

	start := time.Now()
	err := db.Data.Query(`
INSERT INTO readings (sensor_id, bucket_date, timestamp, humidity, temperature, soil_ph, battery_level, lat, lon)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, r.SensorID, bucketOf(r.Timestamp), r.Timestamp,
		toDec(r.Humidity), toDec(r.Temperature), toDec(r.SoilPH), optDec(r.BatteryLevel),
		lat, lon,
	).WithContext(ctx).Exec()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	observeWrite("insert_reading", start)

	return nil
}

// GetReadings returns the readings of a sensor between two timestamps, newest
// first, possibly spanning multiple bucket_dates.
func (db *DB) GetReadings(ctx context.Context, sensorID string, from, to time.Time) ([]types.Reading, error) {
	return db.scanBuckets(ctx, sensorID, buckets(from, to), from, to, 0)
}

// GetLastReadings returns up to n of the most recent readings of a sensor,
// newest first.
func (db *DB) GetLastReadings(ctx context.Context, sensorID string, n int) ([]types.Reading, error) {
	if n <= 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	from := now.Add(-lookbackDays * 24 * time.Hour)
	return db.scanBuckets(ctx, sensorID, buckets(from, now), time.Time{}, now.Add(time.Hour), n)
}

func (db *DB) scanBuckets(ctx context.Context, sensorID string, days []time.Time, from, to time.Time, limit int) ([]types.Reading, error) {
	ctx, span := otel.Tracer("nostradamus-db").Start(ctx, "db.GetReadings")
	defer span.End()
	span.SetAttributes(
		attribute.String("sensor.id", sensorID),
		attribute.Int("db.buckets", len(days)),
	)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	readings := make([]types.Reading, 0, 64)

	for _, bucket := range days {
		iter := db.Data.Query(`
SELECT timestamp, humidity, temperature, soil_ph, battery_level, lat, lon
FROM readings
WHERE sensor_id = ? AND bucket_date = ? AND timestamp >= ? AND timestamp <= ?
ORDER BY timestamp DESC
`, sensorID, bucket, from, to).WithContext(ctx).Iter()

		var (
			ts                  time.Time
			hum, temp, ph, batt *inf.Dec
			lat, lon            *float64
		)
		for iter.Scan(&ts, &hum, &temp, &ph, &batt, &lat, &lon) {
			r := types.Reading{
				SensorID:     sensorID,
				Timestamp:    ts,
				Humidity:     fromDec(hum),
				Temperature:  fromDec(temp),
				SoilPH:       fromDec(ph),
				BatteryLevel: optFloat(batt),
			}
			if lat != nil && lon != nil {
				r.Location = &types.Location{Lat: *lat, Lon: *lon}
			}
			readings = append(readings, r)
			batt, lat, lon = nil, nil, nil

			if limit > 0 && len(readings) == limit {
				break
			}
		}

		if err := iter.Close(); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to query bucket %s: %w", bucket.Format(time.DateOnly), err)
		}
		if limit > 0 && len(readings) == limit {
			break
		}
	}
	observeRead("get_readings", start)

	return readings, nil
}
