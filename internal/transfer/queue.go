package transfer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mfat/mfatfm/internal/events"
	"github.com/mfat/mfatfm/internal/logging"
	"github.com/mfat/mfatfm/internal/remote"
)

// TaskQueue owns the remote session and the worker goroutines that execute
// operations against it. Submission never blocks; operations run in FIFO
// order. With the default single worker, global execution order equals
// submission order, which also matches the non-reentrant contract of most
// SFTP session implementations.
type TaskQueue struct {
	session remote.Session
	bridge  *Bridge
	bus     *events.EventBus
	logger  *logging.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []*Handle
	shutdown bool

	// callMu serializes session calls when more than one worker runs.
	// With one worker it is uncontended.
	callMu sync.Mutex

	wg sync.WaitGroup
}

// NewTaskQueue creates a queue over the given session. workers <= 0 selects
// the default of one worker. The bus is optional; when nil, no lifecycle
// events are published.
func NewTaskQueue(session remote.Session, bridge *Bridge, bus *events.EventBus, workers int, logger *logging.Logger) *TaskQueue {
	if logger == nil {
		logger = logging.NewNop()
	}
	q := &TaskQueue{
		session: session,
		bridge:  bridge,
		bus:     bus,
		logger:  logger,
	}
	q.cond = sync.NewCond(&q.mu)

	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// SubmitHandle appends a prepared handle to the queue and returns
// immediately. After Shutdown, the handle is reported cancelled instead of
// being silently lost.
func (q *TaskQueue) SubmitHandle(h *Handle) {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		q.finish(h, StateCancelled, Result{})
		return
	}
	q.pending = append(q.pending, h)
	q.mu.Unlock()

	q.publish(events.EventOpQueued, h, nil)
	q.cond.Signal()
}

// Shutdown stops dequeuing new work and waits for the workers to exit. Every
// still-queued handle is reported cancelled; a running operation is allowed
// to reach its terminal state first. No handle is abandoned without a
// terminal event.
func (q *TaskQueue) Shutdown() {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return
	}
	q.shutdown = true
	drained := q.pending
	q.pending = nil
	q.mu.Unlock()

	q.cond.Broadcast()
	for _, h := range drained {
		q.finish(h, StateCancelled, Result{})
	}
	q.wg.Wait()
}

func (q *TaskQueue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.shutdown {
			q.cond.Wait()
		}
		if q.shutdown && len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		h := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.execute(h)
	}
}

// execute drives one handle from Queued to a terminal state. Errors from the
// session are captured here; nothing propagates out of the worker loop.
func (q *TaskQueue) execute(h *Handle) {
	// Cancelled before being claimed: skip execution entirely.
	if h.Cancelled() {
		q.finish(h, StateCancelled, Result{})
		return
	}

	h.setRunning()
	q.publish(events.EventOpStarted, h, nil)
	q.logger.Debug().
		Uint64("op", h.ID()).
		Str("kind", h.Request().Kind.String()).
		Str("path", h.Request().RemotePath).
		Msg("operation started")

	res, err := q.dispatch(h)
	switch {
	case errors.Is(err, remote.ErrCancelled):
		if h.Request().Kind.IsTransfer() {
			done, _ := h.Progress()
			res = Result{Partial: &Partial{BytesWritten: done}}
		} else {
			res = Result{}
		}
		q.finish(h, StateCancelled, res)

	case err != nil:
		q.logger.Error().
			Uint64("op", h.ID()).
			Str("kind", h.Request().Kind.String()).
			Err(err).
			Msg("operation failed")
		q.finish(h, StateFailed, Result{Err: err})

	case h.Cancelled():
		// The flag was set after the last checkpoint; the call finished
		// anyway, but a set flag only ever transitions to Cancelled.
		if h.Request().Kind.IsTransfer() {
			done, _ := h.Progress()
			res = Result{Partial: &Partial{BytesWritten: done}}
		} else {
			res = Result{}
		}
		q.finish(h, StateCancelled, res)

	default:
		q.finish(h, StateSucceeded, res)
	}
}

// dispatch invokes the session call for the handle's operation kind.
func (q *TaskQueue) dispatch(h *Handle) (Result, error) {
	req := h.Request()

	q.callMu.Lock()
	defer q.callMu.Unlock()

	switch req.Kind {
	case OpList:
		entries, err := q.session.List(req.RemotePath)
		return Result{Entries: entries}, err

	case OpStat:
		info, err := q.session.Stat(req.RemotePath)
		if err != nil {
			return Result{}, err
		}
		return Result{Info: &info}, nil

	case OpDownload:
		return Result{}, q.session.Get(req.RemotePath, req.LocalPath, q.checkpoint(h))

	case OpUpload:
		return Result{}, q.session.Put(req.LocalPath, req.RemotePath, q.checkpoint(h))

	case OpDelete:
		return Result{}, q.session.Remove(req.RemotePath)

	case OpRename:
		return Result{}, q.session.Rename(req.RemotePath, req.TargetPath)

	case OpMkdir:
		return Result{}, q.session.Mkdir(req.RemotePath)

	default:
		return Result{}, fmt.Errorf("unknown operation kind %d", req.Kind)
	}
}

// checkpoint builds the per-chunk ProgressFunc for a transfer. Each call
// observes the cancellation flag, updates the handle's counters and posts a
// progress event. The zero and final checkpoints are not posted as progress:
// zero carries no information and the final one is folded into the terminal
// event.
func (q *TaskQueue) checkpoint(h *Handle) remote.ProgressFunc {
	return func(written, total int64) error {
		if h.Cancelled() {
			return remote.ErrCancelled
		}

		h.bytesDone.Store(written)
		if total > 0 {
			h.bytesTotal.Store(total)
		}

		if written > 0 && written != total {
			q.bridge.Post(Event{
				HandleID:   h.ID(),
				State:      StateRunning,
				BytesDone:  written,
				BytesTotal: h.bytesTotal.Load(),
			})
			q.publish(events.EventOpProgress, h, nil)
		}
		return nil
	}
}

// finish records the terminal state on the handle, posts the terminal event
// through the bridge, and mirrors it on the event bus.
func (q *TaskQueue) finish(h *Handle, state State, res Result) {
	h.finish(state, res)

	done, total := h.Progress()
	q.bridge.Post(Event{
		HandleID:   h.ID(),
		State:      state,
		BytesDone:  done,
		BytesTotal: total,
		Result:     &res,
	})

	switch state {
	case StateSucceeded:
		q.publish(events.EventOpSucceeded, h, nil)
	case StateFailed:
		q.publish(events.EventOpFailed, h, res.Err)
	case StateCancelled:
		q.publish(events.EventOpCancelled, h, nil)
	}
}

func (q *TaskQueue) publish(t events.EventType, h *Handle, err error) {
	if q.bus == nil {
		return
	}
	done, total := h.Progress()
	q.bus.Publish(&events.OperationEvent{
		BaseEvent:  events.BaseEvent{EventType: t, Time: time.Now()},
		HandleID:   h.ID(),
		Kind:       h.Request().Kind.String(),
		Name:       h.Request().DisplayName(),
		Path:       h.Request().RemotePath,
		BytesDone:  done,
		BytesTotal: total,
		Err:        err,
	})
}
