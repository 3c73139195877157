// Package archive manages the on-disk study snapshot directory: finding the
// newest snapshot per study and pruning superseded ones.
package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Snapshot files are named <studyID>-rev<N>.snap.zst by the server.
const snapSuffix = ".snap.zst"

type entry struct {
	path     string
	revision uint64
}

// Latest returns the highest-revision snapshot file for a study, or ok=false
// when none exists. A missing directory is not an error.
func Latest(dir, studyID string) (path string, revision uint64, ok bool) {
	ents := scan(dir, studyID)
	if len(ents) == 0 {
		return "", 0, false
	}
	best := ents[len(ents)-1]
	return best.path, best.revision, true
}

// Prune deletes all but the newest keep snapshots of a study and returns the
// removed paths. keep < 1 is treated as 1.
func Prune(dir, studyID string, keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	ents := scan(dir, studyID)
	if len(ents) <= keep {
		return nil, nil
	}
	var removed []string
	for _, e := range ents[:len(ents)-keep] {
		if err := os.Remove(e.path); err != nil {
			return removed, err
		}
		removed = append(removed, e.path)
	}
	return removed, nil
}

// scan lists a study's snapshot files sorted by ascending revision.
func scan(dir, studyID string) []entry {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	prefix := studyID + "-rev"
	out := make([]entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, snapSuffix) {
			continue
		}
		revStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), snapSuffix)
		rev, err := strconv.ParseUint(revStr, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, entry{path: filepath.Join(dir, name), revision: rev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].revision < out[j].revision })
	return out
}
