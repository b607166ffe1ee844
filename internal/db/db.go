// Package db persists readings, alerts and farmer profiles in ScyllaDB.
package db

import (
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
)

var (
	ErrSensorNotFound  = errors.New("sensor not found")
	ErrFieldNotFound   = errors.New("field not found")
	ErrProfileNotFound = errors.New("farmer profile not found")
	ErrAlertNotFound   = errors.New("alert not found")
)

type DB struct {
	Meta *gocql.Session // sensors_meta
	Data *gocql.Session // sensors_data
}

func New(metaSess, dataSess *gocql.Session) *DB {
	return &DB{
		Meta: metaSess,
		Data: dataSess,
	}
}

// Connect opens one session per keyspace.
func Connect(nodes []string, metaKeyspace, dataKeyspace string) (*DB, error) {
	metaSess, err := session(nodes, metaKeyspace)
	if err != nil {
		return nil, err
	}
	dataSess, err := session(nodes, dataKeyspace)
	if err != nil {
		metaSess.Close()
		return nil, err
	}
	return New(metaSess, dataSess), nil
}

func session(nodes []string, keyspace string) (*gocql.Session, error) {
	cluster := gocql.NewCluster(nodes...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 2 * time.Second
	// Remove
	cluster.DisableInitialHostLookup = true
	cluster.DisableShardAwarePort = true
	return cluster.CreateSession()
}

func (db *DB) Close() {
	if db.Meta != nil {
		db.Meta.Close()
	}
	if db.Data != nil {
		db.Data.Close()
	}
}

func observeRead(query string, start time.Time) {
	metrics.DbReadLatencySeconds.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func observeWrite(query string, start time.Time) {
	metrics.DbWriteLatencySeconds.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
