package engine

import "time"

// DefaultAttemptClock is the time an athlete has to start the attempt.
const DefaultAttemptClock = 60 * time.Second

// countdown is the attempt clock.
//
// It stores only the wall deadline; remaining time is recomputed on every
// tick so a delayed tick never accumulates drift.
type countdown struct {
	athleteID string
	deadline  time.Time
	running   bool
}

func (c *countdown) start(athleteID string, now time.Time, d time.Duration) {
	c.athleteID = athleteID
	c.deadline = now.Add(d)
	c.running = true
}

func (c *countdown) stop() {
	*c = countdown{}
}

// remaining returns whole seconds left at now, rounded up, never negative.
func (c *countdown) remaining(now time.Time) int {
	d := c.deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
