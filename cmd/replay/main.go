// replay walks the append-only edit logs and summarizes editing activity per
// study. Given a snapshot it also checks that the snapshot's revision is
// covered by the logged strokes.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/snapshot"
	"github.com/HYEJI0818/AIVIS-Q/internal/studio"
)

type studySummary struct {
	Events   int
	Strokes  int
	Changed  int
	Undos    int
	Resets   int
	Saves    int
	Sessions map[string]struct{}
	MaxRev   uint64
}

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		studyID  = flag.String("study", "", "study id filter (optional)")
		snapPath = flag.String("snapshot", "", "path to .snap.zst to check against the log (optional)")
	)
	flag.Parse()

	files, err := listEditFiles(filepath.Join(*dataDir, "edits"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list edits:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no edit logs found under", *dataDir)
		os.Exit(1)
	}

	sums := map[string]*studySummary{}
	for _, path := range files {
		if err := scanFile(path, *studyID, sums); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
	}

	ids := make([]string, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := sums[id]
		fmt.Printf("study=%s events=%d strokes=%d changed_voxels=%d undo=%d reset=%d save=%d sessions=%d max_revision=%d\n",
			id, s.Events, s.Strokes, s.Changed, s.Undos, s.Resets, s.Saves, len(s.Sessions), s.MaxRev)
	}

	if *snapPath == "" {
		return
	}
	hdr, err := snapshot.PeekHeader(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d study=%s revision=%d\n", hdr.Version, hdr.StudyID, hdr.Revision)
	s := sums[hdr.StudyID]
	if s == nil {
		fmt.Fprintf(os.Stderr, "no logged edits for study %s\n", hdr.StudyID)
		os.Exit(1)
	}
	if s.MaxRev < hdr.Revision {
		fmt.Fprintf(os.Stderr, "revision gap: snapshot=%d log max=%d (missing log files?)\n", hdr.Revision, s.MaxRev)
		os.Exit(1)
	}
	fmt.Printf("log covers snapshot: max logged revision %d >= %d\n", s.MaxRev, hdr.Revision)
}

func listEditFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "edits-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile(path, filter string, sums map[string]*studySummary) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var e studio.EditEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if filter != "" && e.StudyID != filter {
			continue
		}
		s := sums[e.StudyID]
		if s == nil {
			s = &studySummary{Sessions: map[string]struct{}{}}
			sums[e.StudyID] = s
		}
		s.Events++
		s.Sessions[e.SessionID] = struct{}{}
		switch e.Op {
		case "STROKE":
			s.Strokes++
			s.Changed += e.Changed
		case "UNDO":
			s.Undos++
		case "RESET":
			s.Resets++
		case "SAVE":
			s.Saves++
		}
		if e.Revision > s.MaxRev {
			s.MaxRev = e.Revision
		}
	}
	return sc.Err()
}
