package cooldown

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValkey(t *testing.T) (*Valkey, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	v := NewValkey(client, zerolog.Nop())
	v.timeout = 2 * time.Second
	return v, mr
}

func TestValkey_Window(t *testing.T) {
	v, mr := newTestValkey(t)

	assert.True(t, v.TryAcquire("S1", t0, DefaultWindow))
	assert.False(t, v.TryAcquire("S1", t0.Add(10*time.Minute), DefaultWindow))
	assert.True(t, v.TryAcquire("S1", t0.Add(30*time.Minute), DefaultWindow))

	got, err := mr.Get("cooldown:S1")
	require.NoError(t, err)
	assert.Equal(t, "1748773800000", got)
	assert.True(t, mr.TTL("cooldown:S1") > 0)
}

func TestValkey_SharedBetweenReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { a.Close(); b.Close() })

	first := NewValkey(a, zerolog.Nop())
	second := NewValkey(b, zerolog.Nop())

	assert.True(t, first.TryAcquire("S1", t0, DefaultWindow))
	assert.False(t, second.TryAcquire("S1", t0.Add(time.Minute), DefaultWindow))
}

func TestValkey_FallsBackToLocal(t *testing.T) {
	v, mr := newTestValkey(t)
	mr.Close()

	assert.True(t, v.TryAcquire("S1", t0, DefaultWindow))
	assert.False(t, v.TryAcquire("S1", t0.Add(time.Minute), DefaultWindow))
}

func TestValkey_Concurrent(t *testing.T) {
	v, _ := newTestValkey(t)

	var won atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.TryAcquire("S1", t0, DefaultWindow) {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
}

func TestValkey_OutageAcquisitionSurvivesRecovery(t *testing.T) {
	v, mr := newTestValkey(t)

	mr.Close()
	require.True(t, v.TryAcquire("S1", t0, DefaultWindow))

	require.NoError(t, mr.Restart())
	assert.False(t, v.TryAcquire("S1", t0.Add(5*time.Minute), DefaultWindow))

	// written back for the other replicas
	got, err := mr.Get("cooldown:S1")
	require.NoError(t, err)
	assert.Equal(t, "1748772000000", got)

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { other.Close() })
	replica := NewValkey(other, zerolog.Nop())
	replica.timeout = 2 * time.Second
	assert.False(t, replica.TryAcquire("S1", t0.Add(10*time.Minute), DefaultWindow))

	assert.True(t, v.TryAcquire("S1", t0.Add(DefaultWindow), DefaultWindow))
}

func TestValkey_WriteBackNeverRewinds(t *testing.T) {
	v, mr := newTestValkey(t)

	mr.Close()
	require.True(t, v.TryAcquire("S1", t0, DefaultWindow))
	require.NoError(t, mr.Restart())

	later := t0.Add(10 * time.Minute).UnixMilli()
	require.NoError(t, mr.Set("cooldown:S1", strconv.FormatInt(later, 10)))

	assert.False(t, v.TryAcquire("S1", t0.Add(time.Minute), DefaultWindow))
	got, err := mr.Get("cooldown:S1")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(later, 10), got)
}
