package dnd

import (
	"sync"
	"testing"
	"time"
)

type callRecorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *callRecorder) record(n int) func() {
	return func() {
		r.mu.Lock()
		r.calls = append(r.calls, n)
		r.mu.Unlock()
	}
}

func (r *callRecorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func TestThrottleCoalescesExcessCalls(t *testing.T) {
	const window = 50 * time.Millisecond
	th := NewThrottle(6, window)
	defer th.Stop()

	rec := &callRecorder{}
	for i := 1; i <= 20; i++ {
		th.Call(rec.record(i))
	}

	got := rec.snapshot()
	if len(got) != 6 {
		t.Fatalf("expected 6 immediate calls, got %d: %v", len(got), got)
	}
	for i := 0; i < 6; i++ {
		if got[i] != i+1 {
			t.Fatalf("expected calls 1..6 in order, got %v", got)
		}
	}

	// The window reset flushes the coalesced slot exactly once, and only the
	// most recent call survives.
	time.Sleep(2 * window)
	got = rec.snapshot()
	if len(got) != 7 {
		t.Fatalf("expected 7 total calls after flush, got %d: %v", len(got), got)
	}
	if got[6] != 20 {
		t.Fatalf("expected the last queued call (20) to flush, got %d", got[6])
	}

	// No pending work remains: further windows run nothing.
	time.Sleep(2 * window)
	if n := len(rec.snapshot()); n != 7 {
		t.Fatalf("flush ran more than once: %d calls", n)
	}
}

func TestThrottleBudgetResetsAfterWindow(t *testing.T) {
	const window = 30 * time.Millisecond
	th := NewThrottle(2, window)
	defer th.Stop()

	rec := &callRecorder{}
	th.Call(rec.record(1))
	th.Call(rec.record(2))
	th.Call(rec.record(3)) // over budget, queued

	time.Sleep(2 * window)
	if got := rec.snapshot(); len(got) != 3 || got[2] != 3 {
		t.Fatalf("expected queued call to flush, got %v", got)
	}

	// A fresh window after an idle one admits calls immediately again.
	time.Sleep(2 * window)
	th.Call(rec.record(4))
	if got := rec.snapshot(); len(got) != 4 || got[3] != 4 {
		t.Fatalf("expected immediate call after reset, got %v", got)
	}
}

func TestThrottleClampsLimit(t *testing.T) {
	th := NewThrottle(0, 20*time.Millisecond)
	defer th.Stop()

	ran := false
	th.Call(func() { ran = true })
	if !ran {
		t.Fatal("a clamped throttle must still admit the first call")
	}
}

func TestThrottleStopDropsPending(t *testing.T) {
	const window = 30 * time.Millisecond
	th := NewThrottle(1, window)

	rec := &callRecorder{}
	th.Call(rec.record(1))
	th.Call(rec.record(2))
	th.Stop()

	time.Sleep(2 * window)
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected pending call dropped after Stop, got %v", got)
	}
}
