package clock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGeneration_NextInvalidatesPrevious(t *testing.T) {
	var g Generation
	first := g.Next()
	if !g.Is(first) {
		t.Fatalf("Is(%d) = false, want true", first)
	}
	second := g.Next()
	if g.Is(first) {
		t.Errorf("Is(%d) = true after Next, want false", first)
	}
	if !g.Is(second) {
		t.Errorf("Is(%d) = false, want true", second)
	}
}

func TestManual_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	m.Advance(3 * time.Second)
	if got := m.Now().Sub(start); got != 3*time.Second {
		t.Errorf("elapsed = %v, want 3s", got)
	}
}

func TestTicker_DeliversTicksWithGeneration(t *testing.T) {
	tk := NewTicker(5 * time.Millisecond)
	defer tk.Close()

	got := make(chan uint64, 10)
	gen := tk.Start(func(g uint64) {
		select {
		case got <- g:
		default:
		}
	})

	select {
	case g := <-got:
		if g != gen {
			t.Errorf("tick generation = %d, want %d", g, gen)
		}
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}
}

func TestTicker_RestartCancelsPreviousRun(t *testing.T) {
	tk := NewTicker(2 * time.Millisecond)
	defer tk.Close()

	var oldTicks atomic.Int64
	var mu sync.Mutex
	stale := 0

	first := tk.Start(func(uint64) { oldTicks.Add(1) })
	time.Sleep(10 * time.Millisecond)

	second := tk.Start(func(g uint64) {
		if g != tk.Current() {
			mu.Lock()
			stale++
			mu.Unlock()
		}
	})
	if first == second {
		t.Fatal("expected a new generation on restart")
	}

	// Give the old goroutine time to observe cancellation.
	time.Sleep(10 * time.Millisecond)
	before := oldTicks.Load()
	time.Sleep(20 * time.Millisecond)
	if after := oldTicks.Load(); after != before {
		t.Errorf("old run kept ticking: %d -> %d", before, after)
	}

	mu.Lock()
	defer mu.Unlock()
	if stale != 0 {
		t.Errorf("new run saw %d stale generations", stale)
	}
}

func TestTicker_StopHaltsTicks(t *testing.T) {
	tk := NewTicker(2 * time.Millisecond)

	var n atomic.Int64
	tk.Start(func(uint64) { n.Add(1) })
	time.Sleep(10 * time.Millisecond)
	tk.Close()

	if tk.Running() {
		t.Error("Running() = true after Close")
	}
	before := n.Load()
	time.Sleep(15 * time.Millisecond)
	if after := n.Load(); after != before {
		t.Errorf("ticks after Close: %d -> %d", before, after)
	}
}

func TestTimer_ScheduleReplacesPending(t *testing.T) {
	var tm Timer
	fired := make(chan uint64, 2)

	tm.Schedule(time.Hour, func(g uint64) { fired <- g })
	gen := tm.Schedule(time.Millisecond, func(g uint64) { fired <- g })

	select {
	case g := <-fired:
		if g != gen {
			t.Errorf("fired generation = %d, want %d", g, gen)
		}
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTimer_Cancel(t *testing.T) {
	var tm Timer
	fired := make(chan struct{}, 1)
	tm.Schedule(5*time.Millisecond, func(uint64) { fired <- struct{}{} })
	tm.Cancel()

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(20 * time.Millisecond):
	}
}
