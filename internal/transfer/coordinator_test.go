package transfer

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mfat/mfatfm/internal/remote"
)

// directWake runs drains immediately on the posting goroutine. With the
// single-worker queue this keeps callback order identical to event order,
// which is what a real UI loop observes.
func directWake(f func()) { f() }

// progressRecorder collects UI callbacks for one handle.
type progressRecorder struct {
	mu        sync.Mutex
	progress  [][2]int64
	doneState State
	doneRes   Result
	doneCount int
	done      chan struct{}
}

func newProgressRecorder() *progressRecorder {
	return &progressRecorder{done: make(chan struct{})}
}

func (r *progressRecorder) callbacks() (func(*Handle, int64, int64), func(*Handle, State, Result)) {
	onProgress := func(_ *Handle, done, total int64) {
		r.mu.Lock()
		r.progress = append(r.progress, [2]int64{done, total})
		r.mu.Unlock()
	}
	onDone := func(_ *Handle, state State, res Result) {
		r.mu.Lock()
		r.doneState = state
		r.doneRes = res
		r.doneCount++
		count := r.doneCount
		r.mu.Unlock()
		if count == 1 {
			close(r.done)
		}
	}
	return onProgress, onDone
}

func (r *progressRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for terminal callback")
	}
}

func (r *progressRecorder) snapshot() (progress [][2]int64, state State, res Result, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]int64(nil), r.progress...), r.doneState, r.doneRes, r.doneCount
}

func waitForCall(t *testing.T, f *fakeSession, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range f.callLog() {
			if strings.Contains(c, substr) {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeout waiting for session call %q; log: %v", substr, f.callLog())
}

func TestDownloadProgressAndCompletion(t *testing.T) {
	f := newFakeSession()
	f.checkpoints = []int64{0, 250, 600, 1000}
	f.total = 1000

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	h := c.Run(Request{Kind: OpDownload, RemotePath: "/srv/big.bin", LocalPath: "/tmp/big.bin", SizeHint: 1000}, onProgress, onDone)
	rec.wait(t)

	progress, state, res, count := rec.snapshot()
	want := [][2]int64{{250, 1000}, {600, 1000}}
	if len(progress) != len(want) {
		t.Fatalf("progress calls = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
	if count != 1 {
		t.Errorf("onDone ran %d times, want exactly once", count)
	}
	if state != StateSucceeded {
		t.Errorf("terminal state = %v, want succeeded", state)
	}
	if res.Partial != nil {
		t.Errorf("successful download should carry no partial marker, got %+v", res.Partial)
	}
	if h.State() != StateSucceeded {
		t.Errorf("handle state = %v, want succeeded", h.State())
	}
}

func TestCancelBetweenCheckpoints(t *testing.T) {
	f := newFakeSession()
	f.checkpoints = []int64{250, 600, 1000}
	f.total = 1000

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()

	cancelling := func(h *Handle, done, total int64) {
		onProgress(h, done, total)
		if done == 250 {
			c.Cancel(h)
		}
	}
	h := c.Run(Request{Kind: OpDownload, RemotePath: "/srv/big.bin", LocalPath: "/tmp/big.bin", SizeHint: 1000}, cancelling, onDone)
	rec.wait(t)

	progress, state, res, _ := rec.snapshot()
	if state != StateCancelled {
		t.Fatalf("terminal state = %v, want cancelled", state)
	}
	if res.Partial == nil {
		t.Fatal("cancelled transfer must carry a partial marker")
	}
	if res.Partial.BytesWritten != 250 {
		t.Errorf("partial bytes = %d, want 250 (last reported checkpoint)", res.Partial.BytesWritten)
	}
	if len(progress) != 1 || progress[0] != [2]int64{250, 1000} {
		t.Errorf("progress calls = %v, want only (250, 1000)", progress)
	}
	done, total := h.Progress()
	if done != 250 || done > total {
		t.Errorf("handle progress = (%d, %d); bytes must equal last report and not exceed total", done, total)
	}
}

// With a synchronous wake every callback can run before Run has returned, so
// callbacks must rely only on the handle they are given, never on a variable
// assigned from Run's result. The passed-in handle must also be the one Run
// returns, so cancel-from-a-callback and forget-in-onDone work without any
// caller-side synchronisation.
func TestCallbacksReceiveHandleBeforeRunReturns(t *testing.T) {
	f := newFakeSession()
	f.checkpoints = []int64{250, 600, 1000}
	f.total = 1000

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	var (
		mu         sync.Mutex
		progressH  *Handle
		doneH      *Handle
		doneState  State
		doneRes    Result
		afterDone  int // progress callbacks observed after the terminal one
		lookupLive bool
	)
	done := make(chan struct{})

	onProgress := func(h *Handle, done, total int64) {
		mu.Lock()
		progressH = h
		if doneH != nil {
			afterDone++
		}
		mu.Unlock()
		if done == 250 {
			c.Cancel(h)
		}
	}
	onDone := func(h *Handle, state State, res Result) {
		mu.Lock()
		doneH = h
		doneState = state
		doneRes = res
		mu.Unlock()
		c.Forget(h)
		mu.Lock()
		lookupLive = c.Lookup(h.ID()) != nil
		mu.Unlock()
		close(done)
	}

	h := c.Run(Request{Kind: OpDownload, RemotePath: "/srv/big.bin", LocalPath: "/tmp/big.bin", SizeHint: 1000}, onProgress, onDone)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for terminal callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if progressH != h {
		t.Errorf("progress callback handle = %p, want the handle Run returned (%p)", progressH, h)
	}
	if doneH != h {
		t.Errorf("terminal callback handle = %p, want the handle Run returned (%p)", doneH, h)
	}
	if doneState != StateCancelled {
		t.Errorf("terminal state = %v, want cancelled", doneState)
	}
	if doneRes.Partial == nil || doneRes.Partial.BytesWritten != 250 {
		t.Errorf("partial marker = %+v, want 250 bytes", doneRes.Partial)
	}
	if afterDone != 0 {
		t.Errorf("%d progress callbacks ran after the terminal one", afterDone)
	}
	if lookupLive {
		t.Error("handle still registered after Forget from inside the terminal callback")
	}
}

func TestCancelQueuedHandleSkipsExecution(t *testing.T) {
	f := newFakeSession()
	f.gate = make(chan struct{})
	f.checkpoints = []int64{100}
	f.total = 100

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	blocker := newProgressRecorder()
	bp, bd := blocker.callbacks()
	c.Run(Request{Kind: OpDownload, RemotePath: "/srv/slow.bin", LocalPath: "/tmp/slow.bin"}, bp, bd)
	waitForCall(t, f, "get /srv/slow.bin")

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	h := c.Run(Request{Kind: OpList, RemotePath: "/srv/dir"}, onProgress, onDone)
	c.Cancel(h)

	close(f.gate)
	rec.wait(t)

	progress, state, _, _ := rec.snapshot()
	if state != StateCancelled {
		t.Errorf("terminal state = %v, want cancelled", state)
	}
	if len(progress) != 0 {
		t.Errorf("queued-then-cancelled handle reported progress: %v", progress)
	}
	if done, _ := h.Progress(); done != 0 {
		t.Errorf("bytes transferred = %d, want 0", done)
	}
	for _, call := range f.callLog() {
		if call == "list /srv/dir" {
			t.Error("cancelled queued operation must not reach the session")
		}
	}
}

func TestSingleWorkerPreservesSubmissionOrder(t *testing.T) {
	f := newFakeSession()
	f.gate = make(chan struct{})

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	var mu sync.Mutex
	var terminals []string

	run := func(name string, req Request) *progressRecorder {
		rec := newProgressRecorder()
		onProgress, onDone := rec.callbacks()
		c.Run(req, onProgress, func(h *Handle, state State, res Result) {
			mu.Lock()
			terminals = append(terminals, name)
			mu.Unlock()
			onDone(h, state, res)
		})
		return rec
	}

	recA := run("A", Request{Kind: OpMkdir, RemotePath: "/srv/a"})
	waitForCall(t, f, "mkdir /srv/a")
	recB := run("B", Request{Kind: OpMkdir, RemotePath: "/srv/b"})
	recC := run("C", Request{Kind: OpMkdir, RemotePath: "/srv/c"})

	close(f.gate)
	recA.wait(t)
	recB.wait(t)
	recC.wait(t)

	mu.Lock()
	defer mu.Unlock()
	if len(terminals) != 3 || terminals[0] != "A" || terminals[1] != "B" || terminals[2] != "C" {
		t.Errorf("terminal dispatch order = %v, want [A B C]", terminals)
	}
}

func TestForgetSuppressesLateCallbacks(t *testing.T) {
	f := newFakeSession()
	f.gate = make(chan struct{})
	f.checkpoints = []int64{500, 1000}
	f.total = 1000

	c := NewCoordinator(f, Options{Wake: directWake})

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	h := c.Run(Request{Kind: OpDownload, RemotePath: "/srv/x.bin", LocalPath: "/tmp/x.bin"}, onProgress, onDone)
	waitForCall(t, f, "get /srv/x.bin")

	c.Forget(h)
	close(f.gate)
	c.Shutdown() // joins the worker; all events have been posted and drained

	progress, _, _, count := rec.snapshot()
	if len(progress) != 0 {
		t.Errorf("forgotten handle received progress: %v", progress)
	}
	if count != 0 {
		t.Errorf("forgotten handle received %d terminal callbacks, want 0", count)
	}
	if h.State() != StateSucceeded {
		t.Errorf("operation itself should still run to completion, state = %v", h.State())
	}
}

func TestCancelIdempotent(t *testing.T) {
	f := newFakeSession()
	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	h := c.Run(Request{Kind: OpMkdir, RemotePath: "/srv/new"}, onProgress, onDone)
	rec.wait(t)

	if h.State() != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", h.State())
	}

	c.Cancel(h)
	c.Cancel(h)

	if h.State() != StateSucceeded {
		t.Errorf("cancel after terminal changed state to %v", h.State())
	}
	if _, _, _, count := rec.snapshot(); count != 1 {
		t.Errorf("onDone count after redundant cancels = %d, want 1", count)
	}
}

func TestFailedOperationSurfacesError(t *testing.T) {
	f := newFakeSession()
	f.errs["mkdir"] = &remote.OpError{Op: "mkdir", Path: "/srv/denied", Err: errRemoteBoom}

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	c.Run(Request{Kind: OpMkdir, RemotePath: "/srv/denied"}, onProgress, onDone)
	rec.wait(t)

	_, state, res, _ := rec.snapshot()
	if state != StateFailed {
		t.Fatalf("terminal state = %v, want failed", state)
	}
	if !errors.Is(res.Err, errRemoteBoom) {
		t.Errorf("result error = %v, want wrapped remote error", res.Err)
	}
}

func TestWorkerSurvivesFailingOperation(t *testing.T) {
	f := newFakeSession()
	f.errs["remove"] = errRemoteBoom
	f.listing["/srv"] = []remote.Entry{{Name: "a.txt"}}

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	recFail := newProgressRecorder()
	p1, d1 := recFail.callbacks()
	c.Run(Request{Kind: OpDelete, RemotePath: "/srv/gone"}, p1, d1)
	recFail.wait(t)

	recOK := newProgressRecorder()
	p2, d2 := recOK.callbacks()
	c.Run(Request{Kind: OpList, RemotePath: "/srv"}, p2, d2)
	recOK.wait(t)

	_, state, res, _ := recOK.snapshot()
	if state != StateSucceeded {
		t.Fatalf("operation after a failure did not run, state = %v", state)
	}
	if len(res.Entries) != 1 {
		t.Errorf("listing payload = %v, want one entry", res.Entries)
	}
}

func TestShutdownCancelsQueuedWork(t *testing.T) {
	f := newFakeSession()
	f.gate = make(chan struct{})

	c := NewCoordinator(f, Options{Wake: directWake})

	recA := newProgressRecorder()
	pa, da := recA.callbacks()
	hA := c.Run(Request{Kind: OpMkdir, RemotePath: "/srv/a"}, pa, da)
	waitForCall(t, f, "mkdir /srv/a")

	recB := newProgressRecorder()
	pb, db := recB.callbacks()
	hB := c.Run(Request{Kind: OpMkdir, RemotePath: "/srv/b"}, pb, db)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(f.gate)
	}()
	c.Shutdown()

	recA.wait(t)
	recB.wait(t)
	if hA.State() != StateSucceeded {
		t.Errorf("running operation state = %v, want succeeded (allowed to finish)", hA.State())
	}
	if hB.State() != StateCancelled {
		t.Errorf("queued operation state = %v, want cancelled", hB.State())
	}
}

func TestSubmitAfterShutdownIsCancelled(t *testing.T) {
	f := newFakeSession()
	c := NewCoordinator(f, Options{Wake: directWake})
	c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	h := c.Run(Request{Kind: OpList, RemotePath: "/srv"}, onProgress, onDone)
	rec.wait(t)

	if h.State() != StateCancelled {
		t.Errorf("state = %v, want cancelled", h.State())
	}
}

func TestStatDeliversMetadata(t *testing.T) {
	f := newFakeSession()
	f.statEntry = remote.Entry{Name: "report.pdf", Path: "/srv/report.pdf", Size: 4096}

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	c.Run(Request{Kind: OpStat, RemotePath: "/srv/report.pdf"}, onProgress, onDone)
	rec.wait(t)

	_, state, res, _ := rec.snapshot()
	if state != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", state)
	}
	if res.Info == nil || res.Info.Size != 4096 {
		t.Errorf("stat payload = %+v, want size 4096", res.Info)
	}
}
