package clock

import (
	"sync"
	"time"
)

// Debouncer runs the last scheduled function once the delay has passed
// without another call. Each call replaces the pending timer.
type Debouncer struct {
	mu       sync.Mutex
	clock    Clock
	timer    Timer
	duration time.Duration
}

func NewDebouncer(c Clock, duration time.Duration) *Debouncer {
	return &Debouncer{
		clock:    c,
		duration: duration,
	}
}

func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.duration, fn)
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
