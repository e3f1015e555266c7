package transfer

import (
	"sync"
	"testing"
)

// manualWake collects scheduled drains so tests can pump the "UI loop"
// explicitly.
type manualWake struct {
	mu      sync.Mutex
	pending []func()
}

func (w *manualWake) wake(f func()) {
	w.mu.Lock()
	w.pending = append(w.pending, f)
	w.mu.Unlock()
}

// pump runs every scheduled drain, like one iteration of the UI loop.
func (w *manualWake) pump() {
	w.mu.Lock()
	fns := w.pending
	w.pending = nil
	w.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func (w *manualWake) scheduled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func TestBridgeDispatchOrder(t *testing.T) {
	w := &manualWake{}
	b := NewBridge(w.wake)

	var got []int64
	b.Register(1, Callbacks{
		OnProgress: func(done, total int64) { got = append(got, done) },
	})

	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 10, BytesTotal: 100})
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 20, BytesTotal: 100})
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 30, BytesTotal: 100})
	w.pump()

	want := []int64{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("dispatched %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: done = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBridgeCoalescesWakeups(t *testing.T) {
	w := &manualWake{}
	b := NewBridge(w.wake)
	b.Register(1, Callbacks{})

	for i := 0; i < 50; i++ {
		b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: int64(i)})
	}

	if got := w.scheduled(); got != 1 {
		t.Errorf("scheduled %d wake-ups for 50 posts, want 1", got)
	}
	if got := b.Pending(); got != 50 {
		t.Errorf("Pending = %d, want 50 (no events dropped under back-pressure)", got)
	}

	w.pump()
	if got := b.Pending(); got != 0 {
		t.Errorf("Pending after drain = %d, want 0", got)
	}

	// A post after the drain schedules a fresh wake-up.
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 99})
	if got := w.scheduled(); got != 1 {
		t.Errorf("scheduled %d wake-ups after drain, want 1", got)
	}
}

func TestBridgeDrainWithNothingPending(t *testing.T) {
	b := NewBridge(func(f func()) {})
	b.DrainAndDispatch() // must be a no-op, not a panic
}

func TestBridgeTerminalEventInvokesOnDone(t *testing.T) {
	w := &manualWake{}
	b := NewBridge(w.wake)

	var progress []int64
	var doneState State
	var doneCount int
	b.Register(1, Callbacks{
		OnProgress: func(done, total int64) { progress = append(progress, done) },
		OnDone: func(state State, res Result) {
			doneState = state
			doneCount++
		},
	})

	res := Result{}
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 50, BytesTotal: 100})
	b.Post(Event{HandleID: 1, State: StateSucceeded, BytesDone: 100, BytesTotal: 100, Result: &res})
	w.pump()

	if len(progress) != 1 || progress[0] != 50 {
		t.Errorf("progress calls = %v, want [50]", progress)
	}
	if doneCount != 1 {
		t.Errorf("OnDone ran %d times, want 1", doneCount)
	}
	if doneState != StateSucceeded {
		t.Errorf("OnDone state = %v, want succeeded", doneState)
	}
}

func TestBridgeDropsUnregisteredHandles(t *testing.T) {
	w := &manualWake{}
	b := NewBridge(w.wake)

	called := false
	b.Register(1, Callbacks{OnProgress: func(done, total int64) { called = true }})
	b.Forget(1)

	res := Result{}
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 10})
	b.Post(Event{HandleID: 1, State: StateCancelled, Result: &res})
	w.pump()

	if called {
		t.Error("callbacks ran for a forgotten handle")
	}
}

func TestBridgeForgetDuringDrain(t *testing.T) {
	w := &manualWake{}
	b := NewBridge(w.wake)

	var calls int
	b.Register(1, Callbacks{
		OnProgress: func(done, total int64) {
			calls++
			b.Forget(1)
		},
	})

	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 1})
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 2})
	b.Post(Event{HandleID: 1, State: StateRunning, BytesDone: 3})
	w.pump()

	if calls != 1 {
		t.Errorf("callback ran %d times, want 1 (rest dropped after Forget)", calls)
	}
}
