package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	mu       sync.Mutex
	readings []types.Reading
	sources  []string
	err      error
}

func (f *fakeIngester) Ingest(_ context.Context, r types.Reading, source string) (*ingest.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	f.readings = append(f.readings, r)
	f.sources = append(f.sources, source)
	return &ingest.Result{SensorID: r.SensorID}, nil
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func readingMessage(t *testing.T, offset int64, key string, r types.Reading) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "sensor-readings", Offset: offset, Key: []byte(key), Value: b}
}

func TestConsumeClaim(t *testing.T) {
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	ing := &fakeIngester{}
	c := newConsumer(nil, "sensor-readings", ing, zerolog.Nop())

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
	claim.messages <- readingMessage(t, 1, "S1", types.Reading{SensorID: "S1", Timestamp: ts, Humidity: 40, Temperature: 25, SoilPH: 6.5})
	// sensor id taken from the key
	claim.messages <- readingMessage(t, 2, "S2", types.Reading{Timestamp: ts, Humidity: 50, Temperature: 22, SoilPH: 6.8})
	// out of domain
	claim.messages <- readingMessage(t, 3, "S3", types.Reading{SensorID: "S3", Timestamp: ts, Humidity: 140, Temperature: 22, SoilPH: 6.8})
	claim.messages <- &sarama.ConsumerMessage{Topic: "sensor-readings", Offset: 4, Value: []byte("{not json")}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, c.ConsumeClaim(session, claim))

	assert.Equal(t, []int64{1, 2, 3, 4}, session.marked)
	require.Len(t, ing.readings, 2)
	assert.Equal(t, "S1", ing.readings[0].SensorID)
	assert.Equal(t, "S2", ing.readings[1].SensorID)
	assert.Equal(t, []string{Source, Source}, ing.sources)
}

func TestConsumeClaim_StoreErrorStillMarks(t *testing.T) {
	ing := &fakeIngester{err: errors.New("scylla down")}
	c := newConsumer(nil, "sensor-readings", ing, zerolog.Nop())

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- readingMessage(t, 7, "S1", types.Reading{
		SensorID: "S1", Timestamp: time.Now(), Humidity: 40, Temperature: 25, SoilPH: 6.5,
	})
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, c.ConsumeClaim(session, claim))
	assert.Equal(t, []int64{7}, session.marked)
}

func TestConsumeClaim_StopsOnSessionEnd(t *testing.T) {
	c := newConsumer(nil, "sensor-readings", &fakeIngester{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}
	assert.NoError(t, c.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}

func TestDecodeReading_InvalidJSON(t *testing.T) {
	_, err := decodeReading(&sarama.ConsumerMessage{Value: []byte("[")})
	assert.ErrorIs(t, err, types.ErrInvalidReading)
}

func TestAlertProducer_Notify(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	alert := types.Alert{
		AlertID:  uuid.New(),
		SensorID: "S1",
		Metric:   types.MetricHumidity,
		Severity: types.SeverityCritical,
		Message:  "Critical humidity",
		Value:    12,
	}

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got types.Alert
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.AlertID != alert.AlertID || got.SensorID != "S1" {
			return errors.New("unexpected alert payload")
		}
		return nil
	})

	p := NewAlertProducerFromSync(sp, "alerts")
	assert.Equal(t, "kafka", p.Name())
	assert.NoError(t, p.Notify(context.Background(), alert))
}

func TestAlertProducer_NotifyFails(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewAlertProducerFromSync(sp, "alerts")
	err := p.Notify(context.Background(), types.Alert{AlertID: uuid.New(), SensorID: "S1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestAlertProducer_CancelledContext(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewAlertProducerFromSync(sp, "alerts")
	assert.ErrorIs(t, p.Notify(ctx, types.Alert{SensorID: "S1"}), context.Canceled)
}
