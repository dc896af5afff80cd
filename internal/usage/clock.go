package usage

import "time"

// Clock is the tracker's source of "now". All window arithmetic happens on
// its millisecond value.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// RealClock reads the system wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// TestClock is a manually driven clock. It is not safe for concurrent use.
type TestClock struct {
	CurrentTime time.Time
}

func (c *TestClock) Now() time.Time { return c.CurrentTime }

// Advance moves the clock by d. A negative d winds it back.
func (c *TestClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
