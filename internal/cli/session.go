package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mfat/mfatfm/internal/config"
	"github.com/mfat/mfatfm/internal/events"
	"github.com/mfat/mfatfm/internal/remote"
	"github.com/mfat/mfatfm/internal/transfer"
)

// cliApp bundles the connected session and the coordinator for one
// headless command invocation.
type cliApp struct {
	cfg     *config.Config
	session *remote.SFTPSession
	coord   *transfer.Coordinator
	bus     *events.EventBus
}

// directWake runs bridge drains inline. Headless commands have no UI
// thread; callbacks fire on the worker goroutine, which is safe here
// because each command waits on a channel closed by the done callback.
func directWake(f func()) { f() }

// withSession connects, runs fn, and tears everything down. Missing
// connection details fail fast instead of prompting for them.
func withSession(fn func(a *cliApp) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Host == "" || cfg.User == "" {
		return fmt.Errorf("no host/user configured; pass --host and --user or run the GUI once")
	}

	password := ""
	if cfg.KeyFile == "" && os.Getenv("SSH_AUTH_SOCK") == "" {
		password, err = promptPassword(fmt.Sprintf("%s@%s's password: ", cfg.User, cfg.Host))
		if err != nil {
			return err
		}
	}

	session, err := remote.Dial(remote.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: password,
		KeyFile:  cfg.KeyFile,
		Timeout:  15 * time.Second,
	})
	if err != nil {
		return err
	}

	bus := events.NewEventBus(0)
	coord := transfer.NewCoordinator(session, transfer.Options{
		Wake:   directWake,
		Bus:    bus,
		Logger: logger,
	})

	a := &cliApp{cfg: cfg, session: session, coord: coord, bus: bus}
	runErr := fn(a)

	coord.Shutdown()
	if cerr := session.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	bus.Close()
	return runErr
}

// run submits one request and blocks until it reaches a terminal
// state. Ctrl+C requests cancellation and keeps waiting for the
// worker to stop at its next checkpoint.
func (a *cliApp) run(req transfer.Request, onProgress func(done, total int64)) (transfer.State, transfer.Result) {
	done := make(chan struct{})
	var (
		state  transfer.State
		result transfer.Result
	)
	var progress func(h *transfer.Handle, done, total int64)
	if onProgress != nil {
		progress = func(_ *transfer.Handle, done, total int64) { onProgress(done, total) }
	}
	// With the inline wake the terminal callback can fire before Run
	// returns, so Forget uses the handle the callback receives.
	h := a.coord.Run(req, progress, func(h *transfer.Handle, s transfer.State, r transfer.Result) {
		state, result = s, r
		a.coord.Forget(h)
		close(done)
	})

	ctx := GetContext()
	go func() {
		select {
		case <-ctx.Done():
			a.coord.Cancel(h)
		case <-done:
		}
	}()

	<-done
	return state, result
}

// reportOutcome turns a terminal state into output and an exit error.
func reportOutcome(state transfer.State, res transfer.Result, name string) error {
	switch state {
	case transfer.StateSucceeded:
		return nil
	case transfer.StateCancelled:
		if res.Partial != nil {
			fmt.Fprintf(os.Stderr, "cancelled: partial file kept (%d bytes)\n", res.Partial.BytesWritten)
		} else {
			fmt.Fprintln(os.Stderr, "cancelled")
		}
		return fmt.Errorf("%s cancelled", name)
	default:
		return res.Err
	}
}
