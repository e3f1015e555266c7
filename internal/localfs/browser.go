// Package localfs provides the local-side filesystem operations of the file
// manager: directory listing for the local pane and tree walking for upload
// collection. Consolidated here so the CLI and the GUI behave identically.
package localfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileEntry represents a file or directory in the local filesystem.
type FileEntry struct {
	Path    string      // Full path to the file
	Name    string      // Base name of the file
	Size    int64       // Size in bytes (0 for directories)
	IsDir   bool        // True if this is a directory
	ModTime time.Time   // Last modification time
	Mode    fs.FileMode // File mode/permissions

	// ItemCount is the number of entries inside a directory, or -1 when
	// unknown (unreadable directory, or a regular file).
	ItemCount int
}

// ListOptions configures the behavior of ListDirectory.
type ListOptions struct {
	// IncludeHidden includes hidden files (starting with .) in results.
	IncludeHidden bool

	// CountItems fills ItemCount for directories with an extra ReadDir
	// per subdirectory. The panes want it; bulk operations do not.
	CountItems bool
}

// WalkOptions configures the behavior of Walk.
type WalkOptions struct {
	// IncludeHidden includes hidden files and directories in the walk.
	IncludeHidden bool

	// SkipHiddenDirs skips descending into hidden directories entirely.
	// Only meaningful when IncludeHidden is false.
	SkipHiddenDirs bool
}

// IsHiddenName returns true if the given filename (not path) represents a
// hidden file. "." and ".." are not considered hidden.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// NormalizePath expands a leading ~ and resolves the path to absolute form.
func NormalizePath(path string) string {
	if path == "" {
		path = "/"
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// SortEntries orders a listing directories first, then case-insensitively
// by name. Both panes present listings in this order.
func SortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// ListDirectory returns the contents of a directory, filtered by options
// and sorted with SortEntries. Entries that cannot be stat'd (permission
// issues, dangling symlinks) are skipped rather than failing the whole
// listing.
func ListDirectory(path string, opts ListOptions) ([]FileEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	result := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		fe := FileEntry{
			Path:      filepath.Join(path, name),
			Name:      name,
			Size:      info.Size(),
			IsDir:     entry.IsDir(),
			ModTime:   info.ModTime(),
			Mode:      info.Mode(),
			ItemCount: -1,
		}
		if fe.IsDir && opts.CountItems {
			if sub, err := os.ReadDir(fe.Path); err == nil {
				fe.ItemCount = len(sub)
			}
		}
		result = append(result, fe)
	}

	SortEntries(result)
	return result, nil
}

// WalkFunc is the callback signature for Walk.
// Return filepath.SkipDir to skip a directory, or any other error to stop.
type WalkFunc func(entry FileEntry) error

// Walk traverses a directory tree depth first, calling fn for each file and
// directory. Unreadable entries are skipped.
func Walk(root string, opts WalkOptions, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		name := d.Name()
		if !opts.IncludeHidden && IsHiddenName(name) {
			if d.IsDir() && opts.SkipHiddenDirs {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		return fn(FileEntry{
			Path:      path,
			Name:      name,
			Size:      info.Size(),
			IsDir:     d.IsDir(),
			ModTime:   info.ModTime(),
			Mode:      info.Mode(),
			ItemCount: -1,
		})
	})
}

// WalkFiles is a convenience wrapper around Walk that only visits regular
// files. Used to collect files for upload operations.
func WalkFiles(root string, opts WalkOptions, fn WalkFunc) error {
	return Walk(root, opts, func(entry FileEntry) error {
		if entry.IsDir {
			return nil
		}
		return fn(entry)
	})
}
