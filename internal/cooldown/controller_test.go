package cooldown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestTryAcquire_Window(t *testing.T) {
	c := New()

	assert.True(t, c.TryAcquire("S1", t0, DefaultWindow))
	assert.False(t, c.TryAcquire("S1", t0.Add(10*time.Minute), DefaultWindow))
	assert.False(t, c.TryAcquire("S1", t0.Add(29*time.Minute+59*time.Second), DefaultWindow))
	assert.True(t, c.TryAcquire("S1", t0.Add(30*time.Minute), DefaultWindow))

	last, ok := c.LastAlert("S1")
	assert.True(t, ok)
	assert.Equal(t, t0.Add(30*time.Minute), last)
}

func TestTryAcquire_SuppressedDoesNotExtend(t *testing.T) {
	c := New()

	assert.True(t, c.TryAcquire("S1", t0, DefaultWindow))
	assert.False(t, c.TryAcquire("S1", t0.Add(20*time.Minute), DefaultWindow))
	assert.True(t, c.TryAcquire("S1", t0.Add(31*time.Minute), DefaultWindow))
}

func TestTryAcquire_IndependentSensors(t *testing.T) {
	c := New()

	assert.True(t, c.TryAcquire("S1", t0, DefaultWindow))
	assert.True(t, c.TryAcquire("S2", t0, DefaultWindow))
	assert.False(t, c.TryAcquire("S1", t0.Add(time.Minute), DefaultWindow))
}

func TestTryAcquire_EarlierTimestampSuppressed(t *testing.T) {
	c := New()

	assert.True(t, c.TryAcquire("S1", t0, DefaultWindow))
	assert.False(t, c.TryAcquire("S1", t0.Add(-time.Hour), DefaultWindow))
}

func TestIdle(t *testing.T) {
	c := New()

	assert.True(t, c.Idle("S1", t0, DefaultWindow))
	c.TryAcquire("S1", t0, DefaultWindow)
	assert.False(t, c.Idle("S1", t0.Add(time.Minute), DefaultWindow))
	assert.True(t, c.Idle("S1", t0.Add(DefaultWindow), DefaultWindow))
}

func TestTryAcquire_Concurrent(t *testing.T) {
	c := New()

	const workers = 64
	var won atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if c.TryAcquire("S1", t0, DefaultWindow) {
				won.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
}
