package transfer

import "sync"

// Event is one progress or completion notification produced on a worker
// goroutine and consumed on the UI thread. Result is non-nil exactly for
// terminal events; a terminal event is always the last event posted for its
// handle.
type Event struct {
	HandleID   uint64
	State      State
	BytesDone  int64
	BytesTotal int64 // -1 when unknown
	Result     *Result
}

// Terminal reports whether this event carries a terminal state.
func (e Event) Terminal() bool { return e.Result != nil }

// Callbacks are the UI-thread functions registered for one handle.
// OnProgress runs zero or more times; OnDone runs exactly once, after the
// last OnProgress for the handle.
type Callbacks struct {
	OnProgress func(done, total int64)
	OnDone     func(state State, res Result)
}

// Bridge is the only thread-crossing surface in the subsystem. Workers call
// Post from any goroutine; the UI loop calls DrainAndDispatch, scheduled
// through the wake function handed to NewBridge.
//
// The wake function must arrange for its argument to run on the UI thread
// (fyne.Do in the GUI). Wake-ups are coalesced: many Posts before the UI
// loop next runs schedule a single drain, and no event is ever dropped
// while waiting.
type Bridge struct {
	wake func(func())

	mu          sync.Mutex
	queue       []Event
	wakePending bool
	handlers    map[uint64]Callbacks
}

// NewBridge creates a bridge that schedules UI-thread drains via wake.
func NewBridge(wake func(func())) *Bridge {
	return &Bridge{
		wake:     wake,
		handlers: make(map[uint64]Callbacks),
	}
}

// Register installs the UI callbacks for a handle identity. UI thread only.
func (b *Bridge) Register(id uint64, cbs Callbacks) {
	b.mu.Lock()
	b.handlers[id] = cbs
	b.mu.Unlock()
}

// Forget removes the callback registration for a handle. Safe to call while
// the operation is still running: any later event for the handle is silently
// dropped at dispatch time.
func (b *Bridge) Forget(id uint64) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

// Post enqueues an event and, if no drain is already pending, schedules one.
// Callable from any goroutine, never blocks on the UI.
func (b *Bridge) Post(ev Event) {
	b.mu.Lock()
	b.queue = append(b.queue, ev)
	scheduled := b.wakePending
	b.wakePending = true
	b.mu.Unlock()

	if !scheduled {
		b.wake(b.DrainAndDispatch)
	}
}

// DrainAndDispatch pops every currently queued event in FIFO order and
// invokes the registered callbacks. Runs only on the UI thread. Invoking it
// with no pending events is a no-op.
func (b *Bridge) DrainAndDispatch() {
	b.mu.Lock()
	evs := b.queue
	b.queue = nil
	b.wakePending = false
	b.mu.Unlock()

	for _, ev := range evs {
		// Looked up per event so a callback calling Forget drops the
		// remaining events for that handle within the same drain.
		b.mu.Lock()
		cbs, ok := b.handlers[ev.HandleID]
		b.mu.Unlock()
		if !ok {
			continue
		}

		if ev.Terminal() {
			if cbs.OnDone != nil {
				cbs.OnDone(ev.State, *ev.Result)
			}
		} else if cbs.OnProgress != nil {
			cbs.OnProgress(ev.BytesDone, ev.BytesTotal)
		}
	}
}

// Pending returns the number of queued, undispatched events.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
