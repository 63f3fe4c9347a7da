package runtime

import (
	"path/filepath"
	"testing"
)

func TestExtendPathAppendsSeparatorWhenMissing(t *testing.T) {
	got := extendPath("dist", "a.txt")
	want := "dist" + string(filepath.Separator) + "a.txt"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtendPathSkipsSeparatorWhenPresent(t *testing.T) {
	got := extendPath("dist/", "a.txt")
	if got != "dist/a.txt" {
		t.Fatalf("got %q, want %q", got, "dist/a.txt")
	}
}

func TestExtendPathEmptyHeadIsJustName(t *testing.T) {
	got := extendPath("", "a.txt")
	if got != "a.txt" {
		t.Fatalf("got %q, want %q", got, "a.txt")
	}
}
