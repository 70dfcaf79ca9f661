package core

import "time"

// Clock tracks wall-clock time between successive ticks.
type Clock struct {
	now      func() time.Time
	previous time.Time
	delta    time.Duration
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Tick records the current time and returns the delta to the previous tick.
// The first tick after creation or Reset reports a zero delta.
func (c *Clock) Tick() time.Duration {
	current := c.now()
	if c.previous.IsZero() {
		c.delta = 0
	} else {
		c.delta = current.Sub(c.previous)
	}
	c.previous = current
	return c.delta
}

// Reset forgets the previous tick.
func (c *Clock) Reset() {
	c.previous = time.Time{}
	c.delta = 0
}

func (c *Clock) Previous() time.Time {
	return c.previous
}

func (c *Clock) Delta() time.Duration {
	return c.delta
}
