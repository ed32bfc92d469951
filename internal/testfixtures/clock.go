package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source shared by services under test.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the instant the clock currently points at.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection into service constructors. A nil clock
// falls back to the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Current is Now without implying progression.
func (c *Clock) Current() time.Time {
	return c.Now()
}

// EnterWindow places the clock inside a reservation window, offset from its
// start. Offsets outside [0, end-start) are allowed so tests can exercise the
// edges of a QR validity period.
func (c *Clock) EnterWindow(start time.Time, offset time.Duration) time.Time {
	at := start.Add(offset)
	c.Set(at)
	return at
}

// Slot returns a window on the day of ReferenceTime plus dayOffset, starting
// at hour:minute UTC and lasting d.
func Slot(dayOffset, hour, minute int, d time.Duration) (time.Time, time.Time) {
	ref := ReferenceTime()
	start := time.Date(ref.Year(), ref.Month(), ref.Day()+dayOffset, hour, minute, 0, 0, time.UTC)
	return start, start.Add(d)
}
