// Package transfer implements the SFTP operation offload subsystem: a FIFO
// task queue that runs blocking remote calls on a background worker, and a
// bridge that marshals progress and completion back onto the UI thread.
package transfer

import (
	"sync/atomic"

	"github.com/mfat/mfatfm/internal/remote"
)

// OpKind identifies a remote operation. The set is closed; the worker
// dispatches over it with an explicit switch.
type OpKind int

const (
	OpList OpKind = iota
	OpStat
	OpDownload
	OpUpload
	OpDelete
	OpRename
	OpMkdir
)

func (k OpKind) String() string {
	switch k {
	case OpList:
		return "list"
	case OpStat:
		return "stat"
	case OpDownload:
		return "download"
	case OpUpload:
		return "upload"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	case OpMkdir:
		return "mkdir"
	default:
		return "unknown"
	}
}

// IsTransfer reports whether the operation moves file bytes and therefore
// reports byte-level progress.
func (k OpKind) IsTransfer() bool {
	return k == OpDownload || k == OpUpload
}

// Request is an immutable descriptor of one remote operation. It is created
// by the caller and never mutated by the subsystem.
type Request struct {
	Kind       OpKind
	RemotePath string // Primary remote path (source for download, target otherwise)
	TargetPath string // Second remote path for rename
	LocalPath  string // Local side of a transfer
	SizeHint   int64  // Expected transfer size in bytes, 0 when unknown
	Name       string // Display name; defaults to the remote base name
}

// DisplayName returns the name shown in progress UI and activity logs.
func (r Request) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return remote.BaseName(r.RemotePath)
}

// State is the lifecycle state of a Handle. Terminal states are absorbing:
// once a handle reaches one, no further transition occurs.
type State int32

const (
	StateQueued State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the three absorbing states.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Partial marks a cancelled transfer whose local artifact was left in place.
// The subsystem never deletes partial files; that decision belongs to the
// caller.
type Partial struct {
	BytesWritten int64
}

// Result is the write-once payload of a terminal state. Exactly one of the
// payload fields is populated depending on the operation kind and outcome.
type Result struct {
	Entries []remote.Entry // List
	Info    *remote.Entry  // Stat
	Partial *Partial       // Cancelled mid-transfer
	Err     error          // Failed
}

// Handle represents one submitted operation for its whole lifetime. The UI
// holds it to observe progress and request cancellation; the owning worker
// drives its state.
//
// Field ownership follows a single-writer discipline: the cancellation flag
// is written by the UI and read by the worker; state, progress counters and
// the result slot are written by the worker and read by the UI. The result
// slot is plain (non-atomic) but is always written before the terminal state
// is stored, so a reader that observes a terminal state also observes the
// result.
type Handle struct {
	id  uint64
	req Request

	state      atomic.Int32
	cancelled  atomic.Bool
	bytesDone  atomic.Int64
	bytesTotal atomic.Int64 // -1 while unknown

	result Result // written exactly once by the owning worker
}

func newHandle(id uint64, req Request) *Handle {
	h := &Handle{id: id, req: req}
	if req.Kind.IsTransfer() && req.SizeHint > 0 {
		h.bytesTotal.Store(req.SizeHint)
	} else {
		h.bytesTotal.Store(-1)
	}
	return h
}

// ID returns the handle's identity, unique and monotonically increasing per
// coordinator instance.
func (h *Handle) ID() uint64 { return h.id }

// Request returns the immutable request this handle was created for.
func (h *Handle) Request() Request { return h.req }

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Progress returns the bytes transferred so far and the expected total,
// which is -1 while unknown.
func (h *Handle) Progress() (done, total int64) {
	return h.bytesDone.Load(), h.bytesTotal.Load()
}

// Cancelled reports whether cancellation has been requested. A set flag does
// not mean the handle has reached StateCancelled yet; in-flight transfers
// observe it at the next checkpoint.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// RequestCancel sets the cancellation flag. Idempotent; has no effect on a
// handle that already reached a terminal state.
func (h *Handle) RequestCancel() { h.cancelled.Store(true) }

// Result returns the terminal payload. ok is false until the handle reaches
// a terminal state; the payload must not be inspected before then.
func (h *Handle) Result() (res Result, ok bool) {
	if !h.State().Terminal() {
		return Result{}, false
	}
	return h.result, true
}

// setRunning is called by the owning worker when it claims the handle.
func (h *Handle) setRunning() {
	h.state.Store(int32(StateRunning))
}

// finish writes the result slot and then publishes the terminal state.
// Called exactly once, by the owning worker.
func (h *Handle) finish(state State, res Result) {
	h.result = res
	h.state.Store(int32(state))
}
