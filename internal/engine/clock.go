package engine

import (
	"sync/atomic"
	"time"
)

// Clock stamps broadcast events with a strictly increasing sequence number.
//
// Satellites order events by seq rather than by wall time, so two events
// emitted within the same millisecond still have a defined order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice only the session's single thread of control calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when a server restarts on top of an existing broadcast outbox.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// WallClock supplies wall time for countdown deadlines and event stamps.
// testutil.FakeClock implements it for tests.
type WallClock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
