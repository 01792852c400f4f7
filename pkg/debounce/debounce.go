// Package debounce coalesces rapid repeated triggers into a single delayed
// callback invocation after activity settles.
package debounce

import (
	"sync"
	"time"
)

// Debouncer arms a timer on every Trigger and fires fn once the delay elapses
// with no further trigger. The timer is cancelled and rearmed, never stacked,
// so only the last state before a quiet window is ever observed by fn.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

// New builds a Debouncer invoking fn after delay of inactivity.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)arms the timer. Safe for concurrent use.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending invocation. A callback already started keeps
// running; callers needing stronger guarantees serialize inside fn.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush runs fn immediately when an invocation is pending, instead of waiting
// out the delay. No-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()

	if pending {
		d.fn()
	}
}
