// internal/machine/tickclock.go

package machine

import (
	"sync/atomic"
	"time"
)

// TickClock counts simulated ticks. The count is atomic so observers on
// other goroutines (metrics, progress output) can read it.
type TickClock struct {
	count atomic.Int64
	pace  time.Duration
}

// NewTickClock creates a clock at tick 0. A non-zero pace makes every tick
// take at least that much wall time.
func NewTickClock(pace time.Duration) *TickClock {
	return &TickClock{pace: pace}
}

// Advance moves the clock forward by n ticks and returns the new count.
func (c *TickClock) Advance(n int64) int64 {
	if n <= 0 {
		return c.count.Load()
	}
	if c.pace > 0 {
		time.Sleep(time.Duration(n) * c.pace)
	}
	return c.count.Add(n)
}

// AdvanceTo jumps the clock forward to tick. It never moves backwards.
func (c *TickClock) AdvanceTo(tick int64) int64 {
	return c.Advance(tick - c.count.Load())
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
