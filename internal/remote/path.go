package remote

import (
	"path"
	"strings"
)

// Remote paths always use forward slashes regardless of the local OS, so
// the slash-only stdlib path package does the arithmetic here instead of
// path/filepath. The wrappers pin down the conventions the rest of the
// code relies on: a parent walk bottoms out at "/" and relative names
// parent to the root.

// JoinPath joins a remote directory and a child name.
func JoinPath(base, name string) string {
	return path.Join(base, name)
}

// ParentPath returns the parent directory of a remote path. The root is
// its own parent.
func ParentPath(p string) string {
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	dir := path.Dir(p)
	if dir == "." || dir == "" {
		return "/"
	}
	return dir
}

// BaseName returns the last segment of a remote path, ignoring a
// trailing slash.
func BaseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// expandTilde rewrites "~" and "~/..." against a known home directory.
// Paths that do not start with a tilde are returned unchanged.
func expandTilde(p, home string) string {
	switch {
	case p == "~":
		return home
	case strings.HasPrefix(p, "~/"):
		return JoinPath(home, p[2:])
	default:
		return p
	}
}
