package remote

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		base, name, want string
	}{
		{"/home/user", "file.txt", "/home/user/file.txt"},
		{"/home/user/", "file.txt", "/home/user/file.txt"},
		{"/", "etc", "/etc"},
		{"", "file.txt", "file.txt"},
		{"/home/user", "", "/home/user"},
	}

	for _, tt := range tests {
		if got := JoinPath(tt.base, tt.name); got != tt.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", tt.base, tt.name, got, tt.want)
		}
	}
}

func TestParentPath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/home/user/file.txt", "/home/user"},
		{"/home/user/", "/home"},
		{"/home", "/"},
		{"/", "/"},
		{"file.txt", "/"},
	}

	for _, tt := range tests {
		if got := ParentPath(tt.path); got != tt.want {
			t.Errorf("ParentPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/home/user/file.txt", "file.txt"},
		{"/home/user/", "user"},
		{"file.txt", "file.txt"},
	}

	for _, tt := range tests {
		if got := BaseName(tt.path); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExpandTilde(t *testing.T) {
	tests := []struct {
		path, home, want string
	}{
		{"~", "/home/alice", "/home/alice"},
		{"~/docs", "/home/alice", "/home/alice/docs"},
		{"~/docs/a.txt", "/home/alice", "/home/alice/docs/a.txt"},
		{"/var/log", "/home/alice", "/var/log"},
		{"~user", "/home/alice", "~user"}, // not our user, left alone
	}

	for _, tt := range tests {
		if got := expandTilde(tt.path, tt.home); got != tt.want {
			t.Errorf("expandTilde(%q, %q) = %q, want %q", tt.path, tt.home, got, tt.want)
		}
	}
}

func TestSortEntriesDirsFirstThenName(t *testing.T) {
	entries := []Entry{
		{Name: "zebra.txt"},
		{Name: "Apps", IsDir: true},
		{Name: "alpha.txt"},
		{Name: "bin", IsDir: true},
		{Name: "README"},
	}
	sortEntries(entries)

	want := []string{"Apps", "bin", "alpha.txt", "README", "zebra.txt"}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Name, name)
		}
	}
}

func TestCopyChunksReportsRunningTotal(t *testing.T) {
	src := strings.NewReader(strings.Repeat("x", ChunkSize*2+100))
	var dst bytes.Buffer

	var reports []int64
	err := copyChunks(&dst, src, int64(ChunkSize*2+100), func(written, total int64) error {
		reports = append(reports, written)
		if total != int64(ChunkSize*2+100) {
			t.Errorf("total = %d, want %d", total, ChunkSize*2+100)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("copyChunks: %v", err)
	}

	if dst.Len() != ChunkSize*2+100 {
		t.Errorf("wrote %d bytes, want %d", dst.Len(), ChunkSize*2+100)
	}
	want := []int64{ChunkSize, ChunkSize * 2, ChunkSize*2 + 100}
	if len(reports) != len(want) {
		t.Fatalf("got %d progress reports, want %d: %v", len(reports), len(want), reports)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Errorf("report[%d] = %d, want %d", i, reports[i], want[i])
		}
	}
}

func TestCopyChunksAbortsOnCallbackError(t *testing.T) {
	src := strings.NewReader(strings.Repeat("x", ChunkSize*3))
	var dst bytes.Buffer

	calls := 0
	err := copyChunks(&dst, src, int64(ChunkSize*3), func(written, total int64) error {
		calls++
		if written >= ChunkSize {
			return ErrCancelled
		}
		return nil
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("copyChunks error = %v, want ErrCancelled", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times after abort, want 1", calls)
	}
	if dst.Len() != ChunkSize {
		t.Errorf("wrote %d bytes after abort, want %d", dst.Len(), ChunkSize)
	}
}
