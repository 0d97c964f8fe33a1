package services

import (
	"sync"
	"time"

	"auction-settlement/pkg/clock"
)

// OneDay is the tick period of a long-delay timer.
const OneDay = 24 * time.Hour

// LongDelayTimer fires once after an arbitrarily long delay. Delays of a day
// or more are counted down with a daily tick so that no single runtime timer
// has to span the whole delay.
type LongDelayTimer struct {
	mu        sync.Mutex
	clock     clock.Clock
	fullDays  int
	ticks     int
	remaining time.Duration
	deadline  time.Time
	tick      clock.Timer
	final     clock.Timer
	stopped   bool
	fired     bool
}

// ArmLongDelay schedules onFire(payload) to run once, delay from now. A
// non-positive delay fires immediately.
func ArmLongDelay[T any](clk clock.Clock, delay time.Duration, payload T, onFire func(T)) *LongDelayTimer {
	if delay < 0 {
		delay = 0
	}

	t := &LongDelayTimer{
		clock:     clk,
		fullDays:  int(delay / OneDay),
		remaining: delay,
		deadline:  clk.Now().Add(delay),
	}
	fire := func() {
		t.mu.Lock()
		if t.stopped || t.fired {
			t.mu.Unlock()
			return
		}
		t.fired = true
		t.mu.Unlock()
		onFire(payload)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fullDays == 0 {
		t.final = clk.AfterFunc(delay, fire)
		return t
	}
	t.tick = clk.Every(OneDay, func() { t.onTick(fire) })
	return t
}

func (t *LongDelayTimer) onTick(fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.final != nil {
		return
	}

	t.ticks++
	t.remaining -= OneDay
	if t.ticks < t.fullDays {
		return
	}
	t.tick.Stop()

	// Late ticks shrink what is left until the deadline.
	rest := t.remaining
	if untilDeadline := t.deadline.Sub(t.clock.Now()); untilDeadline < rest {
		rest = untilDeadline
	}
	if rest < 0 {
		rest = 0
	}
	t.final = t.clock.AfterFunc(rest, fire)
}

// Stop cancels the timer. It reports whether the call prevented onFire from
// running.
func (t *LongDelayTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	if t.tick != nil {
		t.tick.Stop()
	}
	if t.final != nil {
		t.final.Stop()
	}
	return true
}

// FullDays is the number of daily ticks counted before the final one-shot.
func (t *LongDelayTimer) FullDays() int {
	return t.fullDays
}

// Ticks is the number of daily ticks observed so far.
func (t *LongDelayTimer) Ticks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Deadline is the instant the timer was armed to fire at.
func (t *LongDelayTimer) Deadline() time.Time {
	return t.deadline
}
