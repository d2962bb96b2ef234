// Package version provides the monotonic version clock shared by every
// synced record type.
package version

import (
	"sync"
	"time"
)

// Clock issues strictly increasing version numbers. A version is the current
// wall time in milliseconds, bumped past the previously issued value when the
// wall clock has not advanced. Versions therefore double as rough timestamps
// while staying unique across rapid writes.
type Clock struct {
	mu   sync.Mutex
	last int64

	now func() time.Time
}

// NewClock creates a version clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next returns the next version number.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.now().UnixMilli()
	if v <= c.last {
		v = c.last + 1
	}
	c.last = v
	return v
}

// Observe advances the clock past an externally produced version so that
// subsequent local writes sort after it.
func (c *Clock) Observe(v int64) {
	c.mu.Lock()
	if v > c.last {
		c.last = v
	}
	c.mu.Unlock()
}
