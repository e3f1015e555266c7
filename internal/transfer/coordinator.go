package transfer

import (
	"sync"
	"sync/atomic"

	"github.com/mfat/mfatfm/internal/events"
	"github.com/mfat/mfatfm/internal/logging"
	"github.com/mfat/mfatfm/internal/remote"
)

// Coordinator is the façade the presentation layer talks to. It owns the
// bridge and the queue, allocates handle identities, and keeps every handle
// alive until the caller forgets it. Dialogs, list views and drag-and-drop
// handlers use Run, Cancel and Forget and nothing else.
type Coordinator struct {
	queue  *TaskQueue
	bridge *Bridge

	nextID atomic.Uint64

	mu      sync.Mutex
	handles map[uint64]*Handle
}

// Options configures a Coordinator.
type Options struct {
	// Wake schedules a function onto the UI thread (fyne.Do in the GUI).
	// Required.
	Wake func(func())

	// Workers is the background worker count. Zero selects the default of
	// one, which keeps execution in strict submission order.
	Workers int

	// Bus receives mirrored lifecycle events for passive observers.
	// Optional.
	Bus *events.EventBus

	// Logger for worker activity. Optional.
	Logger *logging.Logger
}

// NewCoordinator creates a coordinator over the given session. The session
// is owned by the coordinator's queue from this point on and must not be
// used directly by the caller.
func NewCoordinator(session remote.Session, opts Options) *Coordinator {
	bridge := NewBridge(opts.Wake)
	return &Coordinator{
		queue:   NewTaskQueue(session, bridge, opts.Bus, opts.Workers, opts.Logger),
		bridge:  bridge,
		handles: make(map[uint64]*Handle),
	}
}

// Run submits a request and registers its UI-thread callbacks. onProgress is
// invoked zero or more times, onDone exactly once, always after the last
// onProgress for the handle. Returns immediately with the new handle.
//
// Callbacks receive the handle as their first argument rather than closing
// over the caller's variable: with a synchronous Wake the first callback can
// fire before Run returns, so a closure over the caller's not-yet-assigned
// handle variable would race with the assignment.
func (c *Coordinator) Run(req Request, onProgress func(h *Handle, done, total int64), onDone func(h *Handle, state State, res Result)) *Handle {
	h := newHandle(c.nextID.Add(1), req)

	// Callbacks must be registered before the worker can produce events,
	// otherwise an early event would be dropped as unregistered. The handle
	// is bound here, before submission, so the closures never observe a
	// half-initialised value.
	var cb Callbacks
	if onProgress != nil {
		cb.OnProgress = func(done, total int64) { onProgress(h, done, total) }
	}
	if onDone != nil {
		cb.OnDone = func(state State, res Result) { onDone(h, state, res) }
	}
	c.bridge.Register(h.ID(), cb)

	c.mu.Lock()
	c.handles[h.ID()] = h
	c.mu.Unlock()

	c.queue.SubmitHandle(h)
	return h
}

// Cancel requests cancellation of an operation. Idempotent: cancelling a
// terminal or already-cancelled handle, or nil, is a no-op. A queued handle
// is skipped by the worker at dequeue time; a running transfer stops at its
// next checkpoint.
func (c *Coordinator) Cancel(h *Handle) {
	if h == nil || h.State().Terminal() {
		return
	}
	h.RequestCancel()
}

// Forget removes the callback registration and releases the handle. Safe
// even while the operation is still running: late events for a forgotten
// handle are dropped by the bridge, not errored.
func (c *Coordinator) Forget(h *Handle) {
	if h == nil {
		return
	}
	c.bridge.Forget(h.ID())

	c.mu.Lock()
	delete(c.handles, h.ID())
	c.mu.Unlock()
}

// Lookup returns the live handle for an identity, or nil if it was never
// submitted here or has been forgotten.
func (c *Coordinator) Lookup(id uint64) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles[id]
}

// Bridge exposes the drain entry point for hosts that pump the UI loop
// manually (tests, headless CLI).
func (c *Coordinator) Bridge() *Bridge { return c.bridge }

// Shutdown drains the queue cooperatively: queued work is cancelled, the
// running operation finishes, and the workers exit.
func (c *Coordinator) Shutdown() {
	c.queue.Shutdown()
}
