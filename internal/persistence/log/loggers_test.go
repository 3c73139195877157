package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/HYEJI0818/AIVIS-Q/internal/studio"
)

func TestEditLogger_WritesReadableJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewEditLogger(dir, func(err error) { t.Fatalf("log error: %v", err) })

	l.LogEdit(studio.EditEvent{
		Time:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		StudyID: "ST1",
		Op:      "STROKE",
		Tool:    "PAINT",
		Label:   1,
		Changed: 42,
	})
	l.LogEdit(studio.EditEvent{StudyID: "ST1", Op: "UNDO"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "edits", "edits-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files: %v (%v)", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	var events []studio.EditEvent
	for sc.Scan() {
		var e studio.EditEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line: %v", err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("events: got %d want 2", len(events))
	}
	if events[0].Op != "STROKE" || events[0].Changed != 42 {
		t.Fatalf("first event: %+v", events[0])
	}
	if events[1].Op != "UNDO" {
		t.Fatalf("second event: %+v", events[1])
	}
}
