package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/cooldown"
	"github.com/ntentasd/nostradamus-advisor/internal/crops"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	readings []types.Reading
	err      error
}

func (s *fakeStore) InsertReading(_ context.Context, r types.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.readings = append(s.readings, r)
	return nil
}

type fakeCache struct{ err error }

func (c *fakeCache) StoreReading(context.Context, types.Reading) error { return c.err }

type fakeAlerts struct {
	mu      sync.Mutex
	alerts  []types.Alert
	updates map[uuid.UUID]types.SMSStatus
}

func (a *fakeAlerts) InsertAlert(_ context.Context, alert types.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *fakeAlerts) UpdateAlertStatus(_ context.Context, _ string, id uuid.UUID, status types.SMSStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.updates == nil {
		a.updates = make(map[uuid.UUID]types.SMSStatus)
	}
	a.updates[id] = status
	return nil
}

type fakeSensors map[string]string

func (f fakeSensors) SensorCrop(_ context.Context, id string) (string, error) {
	return f[id], nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []types.Alert
	err  error
}

func (n *fakeNotifier) Name() string { return "fake" }

func (n *fakeNotifier) Notify(_ context.Context, a types.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, a)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ingestor *Ingestor
	store    *fakeStore
	alerts   *fakeAlerts
	notifier *fakeNotifier
	clock    *clock
}

func newFixture() *fixture {
	f := &fixture{
		store:    &fakeStore{},
		alerts:   &fakeAlerts{},
		notifier: &fakeNotifier{},
		clock:    &clock{t: t0},
	}
	f.ingestor = &Ingestor{
		Store:    f.store,
		Alerts:   f.alerts,
		Crops:    crops.New(),
		Cooldown: cooldown.New(),
		Notifier: f.notifier,
		Now:      f.clock.now,
		Logger:   zerolog.Nop(),
	}
	return f
}

func reading(sensor string, humidity, temperature float64) types.Reading {
	return types.Reading{SensorID: sensor, Timestamp: t0, Humidity: humidity, Temperature: temperature, SoilPH: 6.5}
}

func TestIngest_InvalidReading(t *testing.T) {
	f := newFixture()

	_, err := f.ingestor.Ingest(context.Background(), reading("S1", 120, 25), "http")

	require.ErrorIs(t, err, types.ErrInvalidReading)
	assert.Empty(t, f.store.readings)
	assert.Zero(t, f.notifier.count())
}

func TestIngest_StoreFailure(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("scylla down")

	_, err := f.ingestor.Ingest(context.Background(), reading("S1", 25, 25), "http")

	require.Error(t, err)
	assert.Zero(t, f.notifier.count())
}

func TestIngest_CacheFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.ingestor.History = &fakeCache{err: errors.New("valkey down")}

	res, err := f.ingestor.Ingest(context.Background(), reading("S1", 50, 25), "http")

	require.NoError(t, err)
	assert.Empty(t, res.Findings)
	assert.Len(t, f.store.readings, 1)
}

func TestIngest_CriticalThenCooldown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.ingestor.Ingest(ctx, reading("S1", 25, 25), "http")
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, types.SeverityCritical, res.Findings[0].Severity)
	assert.Equal(t, types.MetricHumidity, res.Findings[0].Metric)
	assert.True(t, res.Dispatched)
	assert.Equal(t, types.SMSSent, res.Alerts[0].SMSStatus)
	assert.Equal(t, types.SMSSent, f.alerts.updates[res.Alerts[0].AlertID])

	f.clock.t = t0.Add(5 * time.Minute)
	res, err = f.ingestor.Ingest(ctx, reading("S1", 24, 25), "http")
	require.NoError(t, err)
	assert.False(t, res.Dispatched)
	assert.True(t, res.Suppressed)
	assert.Equal(t, types.SMSPending, res.Alerts[0].SMSStatus)

	f.clock.t = t0.Add(30 * time.Minute)
	res, err = f.ingestor.Ingest(ctx, reading("S1", 24, 25), "http")
	require.NoError(t, err)
	assert.True(t, res.Dispatched)

	assert.Equal(t, 2, f.notifier.count())
	assert.Len(t, f.alerts.alerts, 3)
}

func TestIngest_OnlyFirstCriticalDispatched(t *testing.T) {
	f := newFixture()

	res, err := f.ingestor.Ingest(context.Background(), reading("S1", 20, 45), "http")

	require.NoError(t, err)
	require.Len(t, res.Alerts, 2)
	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, types.MetricHumidity, f.notifier.sent[0].Metric)
	assert.Equal(t, types.SMSSent, res.Alerts[0].SMSStatus)
	assert.Equal(t, types.SMSPending, res.Alerts[1].SMSStatus)
}

func TestIngest_WarningsDoNotConsumeCooldown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.ingestor.Ingest(ctx, reading("S1", 35, 25), "http")
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, types.SeverityWarning, res.Findings[0].Severity)
	assert.False(t, res.Dispatched)
	assert.False(t, res.Suppressed)

	f.clock.t = t0.Add(time.Minute)
	res, err = f.ingestor.Ingest(ctx, reading("S1", 25, 25), "http")
	require.NoError(t, err)
	assert.True(t, res.Dispatched)
}

func TestIngest_FailedDispatchKeepsCooldown(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("broker unavailable")
	ctx := context.Background()

	res, err := f.ingestor.Ingest(ctx, reading("S1", 25, 25), "http")
	require.NoError(t, err)
	assert.True(t, res.Dispatched)
	assert.Equal(t, types.SMSFailed, res.Alerts[0].SMSStatus)

	f.clock.t = t0.Add(time.Minute)
	res, err = f.ingestor.Ingest(ctx, reading("S1", 25, 25), "http")
	require.NoError(t, err)
	assert.True(t, res.Suppressed)
}

func TestIngest_CropSpecificThresholds(t *testing.T) {
	f := newFixture()
	f.ingestor.Sensors = fakeSensors{"RICE-1": "riz"}
	ctx := context.Background()

	res, err := f.ingestor.Ingest(ctx, reading("RICE-1", 45, 28), "mqtt")
	require.NoError(t, err)
	assert.Equal(t, "rice", res.CropType)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, types.SeverityWarning, res.Findings[0].Severity)

	res, err = f.ingestor.Ingest(ctx, reading("OTHER", 45, 28), "mqtt")
	require.NoError(t, err)
	assert.Empty(t, res.CropType)
	assert.Empty(t, res.Findings)
}

func TestIngest_ConcurrentCriticalDispatchesOnce(t *testing.T) {
	f := newFixture()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ingestor.Ingest(context.Background(), reading("S1", 20, 25), "kafka")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.notifier.count())
	assert.Len(t, f.store.readings, 32)
}

func TestLogNotifier(t *testing.T) {
	n := &LogNotifier{Logger: zerolog.Nop()}
	assert.Equal(t, "log", n.Name())
	assert.NoError(t, n.Notify(context.Background(), types.Alert{SensorID: "S1"}))
}
