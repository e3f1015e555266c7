package cli

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mfat/mfatfm/internal/remote"
)

func sampleEntries() []remote.Entry {
	mod := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []remote.Entry{
		{Name: "docs", Path: "/home/u/docs", IsDir: true, ItemCount: 3, ModTime: mod, Mode: os.ModeDir | 0o755},
		{Name: "notes.txt", Path: "/home/u/notes.txt", Size: 2048, ModTime: mod, Mode: 0o644},
	}
}

func TestPrintListingShort(t *testing.T) {
	var buf strings.Builder
	printListing(&buf, sampleEntries(), false)

	got := buf.String()
	want := "docs/\nnotes.txt\n"
	if got != want {
		t.Errorf("short listing = %q, want %q", got, want)
	}
}

func TestPrintListingLong(t *testing.T) {
	var buf strings.Builder
	printListing(&buf, sampleEntries(), true)

	out := buf.String()
	if !strings.Contains(out, "3 items") {
		t.Errorf("long listing missing item count: %q", out)
	}
	if !strings.Contains(out, "2.0 KiB") {
		t.Errorf("long listing missing humanized size: %q", out)
	}
	if !strings.Contains(out, "2026-03-14 09:30") {
		t.Errorf("long listing missing mod time: %q", out)
	}
}
