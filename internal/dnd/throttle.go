package dnd

import (
	"sync"
	"time"
)

// DefaultHoverLimit is the default number of hover recomputations allowed
// per rolling window.
const DefaultHoverLimit = 6

// Throttle limits how often a function runs inside a rolling window. The
// first maxPerWindow calls run immediately; later calls are coalesced into a
// single pending slot where only the most recent survives, and the slot is
// flushed exactly once when the window resets. The final call before the
// window closes is therefore always applied.
type Throttle struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	count   int
	pending func()
	timer   *time.Timer
}

// NewThrottle creates a throttle allowing maxPerWindow immediate calls per
// window. maxPerWindow values below 1 are clamped to 1.
func NewThrottle(maxPerWindow int, window time.Duration) *Throttle {
	if maxPerWindow < 1 {
		maxPerWindow = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Throttle{max: maxPerWindow, window: window}
}

// Call runs fn now if the window budget allows, otherwise stores it as the
// single pending call, replacing any previously queued one.
func (t *Throttle) Call(fn func()) {
	t.mu.Lock()
	if t.count < t.max {
		t.count++
		if t.timer == nil {
			t.timer = time.AfterFunc(t.window, t.flush)
		}
		t.mu.Unlock()
		fn()
		return
	}
	t.pending = fn
	if t.timer == nil {
		t.timer = time.AfterFunc(t.window, t.flush)
	}
	t.mu.Unlock()
}

func (t *Throttle) flush() {
	t.mu.Lock()
	fn := t.pending
	t.pending = nil
	if fn != nil {
		// The flushed call starts the next window.
		t.count = 1
		t.timer = time.AfterFunc(t.window, t.flush)
	} else {
		t.count = 0
		t.timer = nil
	}
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels any armed timer and drops the pending call.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
	t.count = 0
}
