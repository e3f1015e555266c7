package remote

import (
	"errors"
	"fmt"
)

// ErrCancelled aborts an in-flight transfer when returned from a ProgressFunc.
// It is recognized by the transfer queue and reported as a cancelled terminal
// state, never as a failure.
var ErrCancelled = errors.New("operation cancelled")

// TransportError wraps connection-level failures: dial errors, auth
// rejections, a session that died mid-call. These are surfaced to the caller
// as-is; retry policy belongs to the host application.
type TransportError struct {
	Op  string // "dial", "auth", "session"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// OpError wraps a remote-side operation failure (path not found, permission
// denied, quota exceeded) with the operation name and path for display.
type OpError struct {
	Op   string // "list", "stat", "get", "put", "remove", "rename", "mkdir"
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
