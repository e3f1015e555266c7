package transfer

import (
	"errors"
	"sync"

	"github.com/mfat/mfatfm/internal/remote"
)

// fakeSession is a scriptable remote.Session. Transfers replay the configured
// checkpoint byte counts through the ProgressFunc; gate, when set, blocks the
// start of any operation until released, which lets tests pin work in the
// Running state or pile up the queue behind it.
type fakeSession struct {
	mu    sync.Mutex
	calls []string

	listing     map[string][]remote.Entry
	statEntry   remote.Entry
	errs        map[string]error // keyed by op name
	checkpoints []int64
	total       int64
	gate        chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		listing: make(map[string][]remote.Entry),
		errs:    make(map[string]error),
	}
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSession) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) waitGate() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeSession) List(path string) ([]remote.Entry, error) {
	f.record("list " + path)
	f.waitGate()
	return f.listing[path], f.errs["list"]
}

func (f *fakeSession) Stat(path string) (remote.Entry, error) {
	f.record("stat " + path)
	f.waitGate()
	return f.statEntry, f.errs["stat"]
}

func (f *fakeSession) Get(remotePath, localPath string, onBytes remote.ProgressFunc) error {
	f.record("get " + remotePath)
	f.waitGate()
	return f.runTransfer(onBytes, f.errs["get"])
}

func (f *fakeSession) Put(localPath, remotePath string, onBytes remote.ProgressFunc) error {
	f.record("put " + remotePath)
	f.waitGate()
	return f.runTransfer(onBytes, f.errs["put"])
}

func (f *fakeSession) runTransfer(onBytes remote.ProgressFunc, finalErr error) error {
	for _, written := range f.checkpoints {
		if onBytes != nil {
			if err := onBytes(written, f.total); err != nil {
				return err
			}
		}
	}
	return finalErr
}

func (f *fakeSession) Remove(path string) error {
	f.record("remove " + path)
	f.waitGate()
	return f.errs["remove"]
}

func (f *fakeSession) Rename(oldPath, newPath string) error {
	f.record("rename " + oldPath)
	f.waitGate()
	return f.errs["rename"]
}

func (f *fakeSession) Mkdir(path string) error {
	f.record("mkdir " + path)
	f.waitGate()
	return f.errs["mkdir"]
}

func (f *fakeSession) Close() error { return nil }

var errRemoteBoom = errors.New("permission denied")
