package quote

import (
	"sync"
	"time"
)

// DebounceScheduler delays a trigger until a quiet period has elapsed since
// the last Schedule call. It is modelled on the daemon build debouncer:
// a quiet window, plus an optional MaxWait that stops a continuous burst
// from postponing the trigger forever.
//
// Every trigger carries the snapshot passed to the Schedule call that armed
// it. The scheduler never reads a shared "current value" when firing.
type DebounceScheduler[T any] struct {
	maxWait time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    bool
	burstStart time.Time
	stopped    bool
}

// NewDebounceScheduler returns a scheduler. maxWait <= 0 disables the upper bound.
func NewDebounceScheduler[T any](maxWait time.Duration) *DebounceScheduler[T] {
	return &DebounceScheduler[T]{maxWait: maxWait}
}

// Schedule cancels any pending trigger and arms a new one that calls
// onFire(snapshot) once delay has elapsed without another Schedule, Cancel
// or Stop. It reports whether a pending trigger was replaced. After Stop it
// does nothing.
func (d *DebounceScheduler[T]) Schedule(snapshot T, delay time.Duration, onFire func(T)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	now := time.Now()
	replaced := d.pending
	if replaced {
		d.timer.Stop()
	} else {
		d.burstStart = now
	}

	wait := delay
	if d.maxWait > 0 {
		if remaining := d.burstStart.Add(d.maxWait).Sub(now); remaining < wait {
			wait = max(remaining, 0)
		}
	}

	d.generation++
	gen := d.generation
	d.pending = true
	d.timer = time.AfterFunc(wait, func() {
		d.mu.Lock()
		// Stop on an AfterFunc timer cannot recall a callback that already
		// started; the generation check makes Cancel deterministic anyway.
		if d.stopped || gen != d.generation {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.timer = nil
		d.mu.Unlock()

		onFire(snapshot)
	})
	return replaced
}

// Cancel prevents the pending trigger from firing and reports whether one
// was pending. Safe to call when nothing is pending.
func (d *DebounceScheduler[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Stop cancels the pending trigger and refuses further scheduling.
func (d *DebounceScheduler[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.cancelLocked()
}

// Pending reports whether a trigger is armed.
func (d *DebounceScheduler[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *DebounceScheduler[T]) cancelLocked() bool {
	if !d.pending {
		return false
	}
	d.generation++
	d.pending = false
	d.timer.Stop()
	d.timer = nil
	return true
}
