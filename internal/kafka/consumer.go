package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

var _ sarama.ConsumerGroupHandler = (*Consumer)(nil)

func NewConsumer(brokers []string, groupID, topic string, ingester Ingester, logger zerolog.Logger) (*Consumer, error) {
	cfg := newConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group: %w", err)
	}
	return newConsumer(group, topic, ingester, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, topic string, ingester Ingester, logger zerolog.Logger) *Consumer {
	return &Consumer{
		group:    group,
		topics:   []string{topic},
		ingester: ingester,
		logger:   logger.With().Str("component", "kafka-consumer").Logger(),
		done:     make(chan struct{}),
	}
}

// Run consumes until ctx is cancelled or the group is closed. Consume
// returns on every rebalance, so it is called in a loop.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.done)

	go func() {
		for err := range c.group.Errors() {
			c.logger.Error().Err(err).Msg("consumer group error")
		}
	}()

	for {
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			c.logger.Error().Err(err).Msg("consume failed")
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Close leaves the group; a running Run returns afterwards.
func (c *Consumer) Close() error {
	return c.group.Close()
}

func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) Setup(s sarama.ConsumerGroupSession) error {
	c.logger.Info().Str("member_id", s.MemberID()).Int32("generation", s.GenerationID()).Msg("joined consumer group")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.handle(session.Context(), msg)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle ingests one message. Failures are logged and the message is still
// marked: a malformed reading will never become valid, and the store is
// retried by the next reading of the same sensor.
func (c *Consumer) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	r, err := decodeReading(msg)
	if err == nil {
		_, err = c.ingester.Ingest(ctx, r, Source)
	}

	switch {
	case err == nil:
	case errors.Is(err, types.ErrInvalidReading):
		c.logger.Warn().Err(err).
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("dropping invalid reading")
	default:
		c.logger.Error().Err(err).
			Str("sensor_id", r.SensorID).
			Int64("offset", msg.Offset).
			Msg("failed to ingest reading")
	}
}
