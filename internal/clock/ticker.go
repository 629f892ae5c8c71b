package clock

import (
	"context"
	"sync"
	"time"
)

// DefaultPeriod is the tick period for both the experiment clock and the
// challenge countdown.
const DefaultPeriod = time.Second

// Generation is a monotonically increasing token. Schedulers stamp every tick
// with the generation that was current when it was scheduled; a consumer drops
// ticks whose generation is no longer current. Bumping the generation is how a
// pending tick gets cancelled.
type Generation struct {
	mu sync.Mutex
	n  uint64
}

// Next invalidates all outstanding ticks and returns the new token.
func (g *Generation) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

// Current returns the live token.
func (g *Generation) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Is reports whether n is the live token.
func (g *Generation) Is(n uint64) bool {
	return g.Current() == n
}

// TickFunc is invoked once per period with the generation of the run that
// produced it.
type TickFunc func(gen uint64)

// Ticker is a restartable periodic producer. Each Start cancels the previous
// run before launching a new one, and callbacks of a single run execute
// serially, so at most one callback is in flight per run.
type Ticker struct {
	period time.Duration
	gen    Generation

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTicker creates a stopped Ticker. A non-positive period uses DefaultPeriod.
func NewTicker(period time.Duration) *Ticker {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Ticker{period: period}
}

// Period returns the tick period.
func (t *Ticker) Period() time.Duration {
	return t.period
}

// Start cancels any previous run and starts a new one. It returns the
// generation token that the new run's callbacks will carry.
func (t *Ticker) Start(fn TickFunc) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	gen := t.gen.Next()
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(1)
	go t.run(ctx, gen, fn)
	return gen
}

// Stop cancels the current run without waiting for it. A callback that is
// already executing will see a stale generation through Current.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen.Next()
}

// Running reports whether a run is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Current returns the generation of the active run (or of the last Stop).
func (t *Ticker) Current() uint64 {
	return t.gen.Current()
}

// Close stops the ticker and waits for its goroutines to exit. It must not be
// called from inside a TickFunc.
func (t *Ticker) Close() {
	t.Stop()
	t.wg.Wait()
}

func (t *Ticker) run(ctx context.Context, gen uint64, fn TickFunc) {
	defer t.wg.Done()

	tk := time.NewTicker(t.period)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if ctx.Err() != nil {
				return
			}
			fn(gen)
		}
	}
}
