package cooldown

import (
	"context"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// KEYS[1] cooldown key, ARGV[1] now (unix ms), ARGV[2] window (ms), ARGV[3] key ttl (ms)
var acquireScript = redis.NewScript(`
local last = redis.call("GET", KEYS[1])
if last then
	if tonumber(ARGV[1]) - tonumber(last) < tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// KEYS[1] cooldown key, ARGV[1] last alert (unix ms), ARGV[2] key ttl (ms).
// Never moves the stored time backwards.
var rememberScript = redis.NewScript(`
local last = redis.call("GET", KEYS[1])
if last and tonumber(last) >= tonumber(ARGV[1]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

var _ Acquirer = (*Valkey)(nil)

// Valkey shares cooldown state between API replicas. Any store error is
// answered by the embedded local controller.
type Valkey struct {
	client  redis.UniversalClient
	prefix  string
	local   *Controller
	logger  zerolog.Logger
	timeout time.Duration
}

func NewValkey(client redis.UniversalClient, logger zerolog.Logger) *Valkey {
	return &Valkey{
		client:  client,
		prefix:  "cooldown:",
		local:   New(),
		logger:  logger.With().Str("component", "cooldown").Logger(),
		timeout: 100 * time.Millisecond,
	}
}

func (v *Valkey) key(sensorID string) string {
	return v.prefix + sensorID
}

func keyTTL(window time.Duration) time.Duration {
	return max(2*window, time.Second)
}

// TryAcquire consults the local record first: an acquisition made while the
// store was unreachable keeps suppressing, and is written back so the other
// replicas observe it too.
func (v *Valkey) TryAcquire(sensorID string, now time.Time, window time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	ttl := keyTTL(window)

	if !v.local.Idle(sensorID, now, window) {
		v.remember(ctx, sensorID, ttl)
		return false
	}

	res, err := acquireScript.Run(ctx, v.client,
		[]string{v.key(sensorID)},
		now.UnixMilli(), window.Milliseconds(), ttl.Milliseconds(),
	).Int()
	if err != nil {
		metrics.CooldownFallbacksTotal.Inc()
		v.logger.Warn().Err(err).Str("sensor_id", sensorID).Msg("cooldown store unavailable, using local state")
		return v.local.TryAcquire(sensorID, now, window)
	}

	acquired := res == 1
	if acquired {
		// keep the local view warm for the next outage
		v.local.TryAcquire(sensorID, now, window)
	}
	return acquired
}

func (v *Valkey) remember(ctx context.Context, sensorID string, ttl time.Duration) {
	last, ok := v.local.LastAlert(sensorID)
	if !ok {
		return
	}
	err := rememberScript.Run(ctx, v.client,
		[]string{v.key(sensorID)},
		last.UnixMilli(), ttl.Milliseconds(),
	).Err()
	if err != nil {
		v.logger.Debug().Err(err).Str("sensor_id", sensorID).Msg("failed to write back local cooldown")
	}
}
