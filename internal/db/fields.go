package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

func (db *DB) GetFieldByID(ctx context.Context, fieldID uuid.UUID) (*types.Field, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	var userID gocql.UUID
	var fieldName, cropType string

	start := time.Now()
	err := db.Meta.Query(`
SELECT user_id, field_name, crop_type
FROM fields
WHERE field_id = ?
ALLOW FILTERING
`, gocql.UUID(fieldID)).WithContext(ctx).Scan(&userID, &fieldName, &cropType)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	observeRead("get_field", start)

	return &types.Field{
		UserID:    (*uuid.UUID)(&userID),
		FieldID:   fieldID,
		FieldName: fieldName,
		CropType:  cropType,
	}, nil
}

func (db *DB) GetSensor(ctx context.Context, sensorID string) (*types.Sensor, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	var name, cropType string
	var fieldID *gocql.UUID

	start := time.Now()
	err := db.Meta.Query(`
SELECT sensor_name, field_id, crop_type
FROM sensors
WHERE sensor_id = ?
`, sensorID).WithContext(ctx).Scan(&name, &fieldID, &cropType)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}
	observeRead("get_sensor", start)

	return &types.Sensor{
		SensorID:   sensorID,
		SensorName: name,
		FieldID:    (*uuid.UUID)(fieldID),
		CropType:   cropType,
	}, nil
}

// SensorCrop returns the crop grown where a sensor is installed: the sensor's
// own crop_type, or its field's. Empty when neither is known.
func (db *DB) SensorCrop(ctx context.Context, sensorID string) (string, error) {
	s, err := db.GetSensor(ctx, sensorID)
	if err != nil {
		if errors.Is(err, ErrSensorNotFound) {
			return "", nil
		}
		return "", err
	}
	if s.CropType != "" || s.FieldID == nil {
		return s.CropType, nil
	}

	f, err := db.GetFieldByID(ctx, *s.FieldID)
	if err != nil {
		if errors.Is(err, ErrFieldNotFound) {
			return "", nil
		}
		return "", err
	}
	return f.CropType, nil
}
