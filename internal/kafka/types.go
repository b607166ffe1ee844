// Package kafka moves readings in and alerts out over Kafka.
package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

const Source = "kafka"

type Ingester interface {
	Ingest(ctx context.Context, r types.Reading, source string) (*ingest.Result, error)
}

// Consumer feeds the readings topic into the ingestion path as a member of
// a consumer group.
type Consumer struct {
	group    sarama.ConsumerGroup
	topics   []string
	ingester Ingester
	logger   zerolog.Logger
	done     chan struct{}
}

// AlertProducer publishes dispatched alerts on the alerts topic, keyed by
// sensor so one sensor's alerts stay ordered.
type AlertProducer struct {
	producer sarama.SyncProducer
	topic    string
}
