package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

var _ ingest.Notifier = (*AlertProducer)(nil)

func NewAlertProducer(brokers []string, topic string) (*AlertProducer, error) {
	cfg := newConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewAlertProducerFromSync(p, topic), nil
}

func NewAlertProducerFromSync(p sarama.SyncProducer, topic string) *AlertProducer {
	return &AlertProducer{producer: p, topic: topic}
}

func (p *AlertProducer) Name() string {
	return Source
}

func (p *AlertProducer) Notify(ctx context.Context, a types.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(a.SensorID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("severity"), Value: []byte(a.Severity)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish alert %s: %w", a.AlertID, err)
	}
	return nil
}

func (p *AlertProducer) Close() error {
	return p.producer.Close()
}
