package ledger

import (
	"sync"
	"time"
)

// Clock supplies the ledger timestamp handed to instructions.
type Clock interface {
	UnixTimestamp() int64
}

// SystemClock reads wall time in seconds and never goes backwards: a reading
// lower than the last one handed out is clamped to it.
type SystemClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

func (c *SystemClock) UnixTimestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().Unix()
	if ts < c.last {
		ts = c.last
	}
	c.last = ts
	return ts
}

// FixedClock always returns the same timestamp.
type FixedClock int64

func (c FixedClock) UnixTimestamp() int64 {
	return int64(c)
}
