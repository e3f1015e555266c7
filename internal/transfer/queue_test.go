package transfer

import (
	"testing"
	"time"

	"github.com/mfat/mfatfm/internal/events"
)

func TestQueueMirrorsLifecycleOnBus(t *testing.T) {
	f := newFakeSession()
	bus := events.NewEventBus(32)
	defer bus.Close()
	sub := bus.SubscribeAll()

	c := NewCoordinator(f, Options{Wake: directWake, Bus: bus})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	c.Run(Request{Kind: OpMkdir, RemotePath: "/srv/new"}, onProgress, onDone)
	rec.wait(t)

	var seen []events.EventType
	deadline := time.After(time.Second)
	for len(seen) < 3 {
		select {
		case ev := <-sub:
			seen = append(seen, ev.Type())
		case <-deadline:
			t.Fatalf("timeout; bus events so far: %v", seen)
		}
	}

	want := []events.EventType{events.EventOpQueued, events.EventOpStarted, events.EventOpSucceeded}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("bus event %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestQueueUnknownTotalProgress(t *testing.T) {
	f := newFakeSession()
	f.checkpoints = []int64{100, 200, 300}
	f.total = -1

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	c.Run(Request{Kind: OpUpload, RemotePath: "/srv/up.bin", LocalPath: "/tmp/up.bin"}, onProgress, onDone)
	rec.wait(t)

	progress, state, _, _ := rec.snapshot()
	if state != StateSucceeded {
		t.Fatalf("state = %v, want succeeded", state)
	}
	// With an unknown total every non-zero checkpoint is reported.
	want := [][2]int64{{100, -1}, {200, -1}, {300, -1}}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
}

func TestQueueTotalDiscoveredMidTransfer(t *testing.T) {
	f := newFakeSession()
	f.checkpoints = []int64{250, 500}
	f.total = 1000

	c := NewCoordinator(f, Options{Wake: directWake})
	defer c.Shutdown()

	rec := newProgressRecorder()
	onProgress, onDone := rec.callbacks()
	// No size hint: the total comes from the session's checkpoints.
	h := c.Run(Request{Kind: OpDownload, RemotePath: "/srv/d.bin", LocalPath: "/tmp/d.bin"}, onProgress, onDone)
	rec.wait(t)

	if _, total := h.Progress(); total != 1000 {
		t.Errorf("discovered total = %d, want 1000", total)
	}
	progress, _, _, _ := rec.snapshot()
	if len(progress) == 0 || progress[0] != [2]int64{250, 1000} {
		t.Errorf("first progress = %v, want (250, 1000)", progress)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	f := newFakeSession()
	c := NewCoordinator(f, Options{Wake: directWake})
	c.Shutdown()
	c.Shutdown() // second call must return immediately, not hang or panic
}
