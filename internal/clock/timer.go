package clock

import (
	"sync"
	"time"
)

// Timer is a one-shot delay with cancel-and-clear semantics: scheduling a new
// callback cancels the pending one.
type Timer struct {
	gen Generation

	mu sync.Mutex
	t  *time.Timer
}

// Schedule arranges for fn to run after d, replacing any pending callback.
// It returns the generation fn will be called with.
func (t *Timer) Schedule(d time.Duration, fn TickFunc) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
	}
	gen := t.gen.Next()
	t.t = time.AfterFunc(d, func() { fn(gen) })
	return gen
}

// Cancel drops the pending callback, if any.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.gen.Next()
}

// Current returns the generation of the pending callback.
func (t *Timer) Current() uint64 {
	return t.gen.Current()
}
