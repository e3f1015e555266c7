// Package remote defines the blocking remote-filesystem boundary used by the
// transfer subsystem, plus an SFTP-backed implementation.
//
// A Session exposes one blocking call at a time. The transfer queue owns the
// session for its whole lifetime and serializes access to it; nothing else in
// the application touches a Session directly.
package remote

import (
	"io/fs"
	"time"
)

// Entry describes a single file or directory on the remote side.
type Entry struct {
	Name    string      // Base name
	Path    string      // Full remote path
	Size    int64       // Size in bytes (0 for directories)
	IsDir   bool        // True for directories
	ModTime time.Time   // Last modification time
	Mode    fs.FileMode // Permissions

	// ItemCount is the number of entries inside a directory,
	// or -1 when unknown (unreadable directory, or a regular file).
	ItemCount int
}

// ProgressFunc is invoked synchronously from within Get/Put on the calling
// goroutine after each chunk is written. written is the running byte count,
// total is the expected size or -1 when unknown.
//
// Returning a non-nil error aborts the transfer; the error is returned
// unchanged from Get/Put. This is the cancellation checkpoint mechanism:
// callers return ErrCancelled here to stop a transfer mid-flight.
type ProgressFunc func(written, total int64) error

// Session is the capability set the transfer queue schedules work against.
// Every method blocks until the remote operation finishes or fails.
//
// Implementations are not required to be safe for concurrent use; the
// transfer queue guarantees at most one call is in flight at a time.
type Session interface {
	// List returns the entries of a remote directory.
	List(path string) ([]Entry, error)

	// Stat returns metadata for a single remote path.
	Stat(path string) (Entry, error)

	// Get copies a remote file to a local path, creating parent directories
	// as needed. A partially written local file is left in place on error.
	Get(remotePath, localPath string, onBytes ProgressFunc) error

	// Put copies a local file to a remote path.
	Put(localPath, remotePath string, onBytes ProgressFunc) error

	// Remove deletes a remote file, or a directory and its contents.
	Remove(path string) error

	// Rename moves a remote file or directory.
	Rename(oldPath, newPath string) error

	// Mkdir creates a remote directory.
	Mkdir(path string) error

	// Close tears down the connection. No calls may follow Close.
	Close() error
}
