// Package clock provides the time sources and interval helpers the control
// loop is driven by.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock. Readings carry Go's monotonic component, so
// Stopwatch deltas are immune to clock steps.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual is a clock that only moves when told to. Useful for simulations
// and tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual { return &Manual{now: start} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Stopwatch measures the time between loop iterations.
type Stopwatch struct {
	last time.Time
}

// Begin restarts the stopwatch at the clock's current time.
func (s *Stopwatch) Begin(clk Clock) { s.last = clk.Now() }

// Elapsed returns the time since Begin. A clock that went backwards yields 0.
func (s *Stopwatch) Elapsed(clk Clock) time.Duration {
	d := clk.Now().Sub(s.last)
	if d < 0 {
		return 0
	}
	return d
}

// Lap returns the elapsed time and restarts the stopwatch.
func (s *Stopwatch) Lap(clk Clock) time.Duration {
	now := clk.Now()
	d := now.Sub(s.last)
	s.last = now
	if d < 0 {
		return 0
	}
	return d
}
