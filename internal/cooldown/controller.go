// Package cooldown rate-limits outbound alerts per sensor.
//
// A sensor is idle when no alert was recorded for it or when the last one is
// at least one window old. TryAcquire on an idle sensor records the alert and
// returns true; on a suppressed sensor it returns false and changes nothing.
package cooldown

import (
	"sync"
	"time"
)

const DefaultWindow = 30 * time.Minute

// Acquirer is the check-and-set the ingestion path depends on.
// Implementations never fail: an unusable backing store degrades to local state.
type Acquirer interface {
	TryAcquire(sensorID string, now time.Time, window time.Duration) bool
}

var _ Acquirer = (*Controller)(nil)

type entry struct {
	mu   sync.Mutex
	last time.Time
	held bool
}

// Controller keeps cooldown state in process. Acquisitions for different
// sensors never contend.
type Controller struct {
	entries sync.Map // sensorID -> *entry
}

func New() *Controller {
	return &Controller{}
}

func (c *Controller) entry(sensorID string) *entry {
	if e, ok := c.entries.Load(sensorID); ok {
		return e.(*entry)
	}
	e, _ := c.entries.LoadOrStore(sensorID, &entry{})
	return e.(*entry)
}

func (c *Controller) TryAcquire(sensorID string, now time.Time, window time.Duration) bool {
	e := c.entry(sensorID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.held && now.Sub(e.last) < window {
		return false
	}

	e.last = now
	e.held = true
	return true
}

// LastAlert returns the time of the last accepted alert for sensorID.
func (c *Controller) LastAlert(sensorID string) (time.Time, bool) {
	v, ok := c.entries.Load(sensorID)
	if !ok {
		return time.Time{}, false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.held
}

// Idle reports whether an alert for sensorID would be accepted at now.
func (c *Controller) Idle(sensorID string, now time.Time, window time.Duration) bool {
	last, ok := c.LastAlert(sensorID)
	return !ok || now.Sub(last) >= window
}
