// Package mqtt ingests readings published by field gateways on the EMQX
// broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

const Source = "mqtt"

type Ingester interface {
	Ingest(ctx context.Context, r types.Reading, source string) (*ingest.Result, error)
}

type Options struct {
	Broker   string // tcp://host:1883
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
}

type Subscriber struct {
	client   paho.Client
	opts     Options
	ingester Ingester
	logger   zerolog.Logger
	timeout  time.Duration
}

func New(opts Options, ingester Ingester, logger zerolog.Logger) *Subscriber {
	s := &Subscriber{
		opts:     opts,
		ingester: ingester,
		logger:   logger.With().Str("component", "mqtt").Logger(),
		timeout:  5 * time.Second,
	}

	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetCleanSession(false)
	co.SetAutoReconnect(true)
	co.SetOrderMatters(false)
	// the broker may have expired the session, resubscribe on every connect
	co.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(opts.Topic, opts.QoS, s.onMessage)
		if token.WaitTimeout(s.timeout) && token.Error() != nil {
			s.logger.Error().Err(token.Error()).Str("topic", opts.Topic).Msg("subscribe failed")
			return
		}
		s.logger.Info().Str("topic", opts.Topic).Msg("subscribed")
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logger.Warn().Err(err).Msg("connection lost")
	})

	s.client = paho.NewClient(co)
	return s
}

// Start connects with exponential backoff. It gives up after a few
// attempts or when ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		token := s.client.Connect()
		if !token.WaitTimeout(s.timeout) {
			return errors.New("connect timed out")
		}
		if err := token.Error(); err != nil {
			s.logger.Warn().Err(err).Str("broker", s.opts.Broker).Msg("connect failed")
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 5), ctx))
	if err != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.opts.Broker, err)
	}

	s.logger.Info().Str("broker", s.opts.Broker).Msg("connected")
	return nil
}

func (s *Subscriber) Stop() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.opts.Topic).WaitTimeout(time.Second)
		s.client.Disconnect(250)
	}
}

func (s *Subscriber) onMessage(_ paho.Client, m paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.handle(ctx, m)
}

func (s *Subscriber) handle(ctx context.Context, m paho.Message) {
	var r types.Reading
	if err := json.Unmarshal(m.Payload(), &r); err != nil {
		s.logger.Warn().Err(err).Str("topic", m.Topic()).Msg("dropping malformed reading")
		return
	}
	if r.SensorID == "" {
		r.SensorID = sensorFromTopic(m.Topic())
	}

	if _, err := s.ingester.Ingest(ctx, r, Source); err != nil {
		ev := s.logger.Error()
		if errors.Is(err, types.ErrInvalidReading) {
			ev = s.logger.Warn()
		}
		ev.Err(err).Str("topic", m.Topic()).Str("sensor_id", r.SensorID).Msg("reading not ingested")
	}
}

// sensorFromTopic extracts <id> from sensors/<id>/readings.
func sensorFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "sensors" && parts[2] == "readings" {
		return parts[1]
	}
	return ""
}
