package clock

import "time"

// Timer accumulates loop deltas and reports how many whole intervals have
// elapsed. The remainder carries over to the next Step.
type Timer struct {
	interval time.Duration
	elapsed  time.Duration
}

func NewTimer(interval time.Duration) Timer {
	return Timer{interval: interval}
}

// Step adds dt and returns the number of intervals completed. A timer with
// a non-positive interval never fires.
func (t *Timer) Step(dt time.Duration) int {
	if t.interval <= 0 {
		return 0
	}
	t.elapsed += dt
	ticks := t.elapsed / t.interval
	t.elapsed -= ticks * t.interval
	return int(ticks)
}

// Reset starts the timer over from zero.
func (t *Timer) Reset() { t.elapsed = 0 }

func (t *Timer) Interval() time.Duration { return t.interval }
