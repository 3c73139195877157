package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ST1-rev1.snap.zst")
	touch(t, dir, "ST1-rev12.snap.zst")
	touch(t, dir, "ST1-rev3.snap.zst")
	touch(t, dir, "ST2-rev99.snap.zst")
	touch(t, dir, "notes.txt")

	path, rev, ok := Latest(dir, "ST1")
	if !ok {
		t.Fatalf("Latest: not found")
	}
	if rev != 12 || filepath.Base(path) != "ST1-rev12.snap.zst" {
		t.Fatalf("Latest: got rev=%d path=%s", rev, path)
	}

	if _, _, ok := Latest(dir, "ST3"); ok {
		t.Fatalf("Latest: found snapshot for unknown study")
	}
	if _, _, ok := Latest(filepath.Join(dir, "missing"), "ST1"); ok {
		t.Fatalf("Latest: found snapshot in missing dir")
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"ST1-rev1", "ST1-rev2", "ST1-rev3", "ST1-rev4"} {
		touch(t, dir, n+".snap.zst")
	}
	touch(t, dir, "ST2-rev1.snap.zst")

	removed, err := Prune(dir, "ST1", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed: %v", removed)
	}
	for _, want := range []string{"ST1-rev3.snap.zst", "ST1-rev4.snap.zst", "ST2-rev1.snap.zst"} {
		if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
			t.Fatalf("%s should survive: %v", want, err)
		}
	}
	for _, gone := range []string{"ST1-rev1.snap.zst", "ST1-rev2.snap.zst"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !os.IsNotExist(err) {
			t.Fatalf("%s should be pruned", gone)
		}
	}

	if removed, err := Prune(dir, "ST1", 5); err != nil || removed != nil {
		t.Fatalf("second prune: removed=%v err=%v", removed, err)
	}
}
