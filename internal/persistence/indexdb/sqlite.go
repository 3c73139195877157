// Package indexdb maintains a queryable sqlite index of studies, edits,
// snapshots and exports. Writes go through a single writer goroutine with
// batched transactions; the enqueue path never blocks the edit loop, rows
// are dropped under pressure and counted. The JSONL edit logs remain the
// source of truth.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/snapshot"
	"github.com/HYEJI0818/AIVIS-Q/internal/studio"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEdit     atomic.Uint64
	dropSnapshot atomic.Uint64
	dropExport   atomic.Uint64
}

type reqKind int

const (
	reqEdit reqKind = iota + 1
	reqSnapshot
	reqExport
	reqSync
)

type req struct {
	kind reqKind

	edit     studio.EditEvent
	snapshot snapshotRow
	export   exportRow
	done     chan struct{}
}

type snapshotRow struct {
	StudyID  string
	Revision uint64
	Path     string
	Voxels   int
	SavedAt  string
}

type exportRow struct {
	StudyID    string
	Revision   uint64
	Kind       string // MASK or REPORT
	Path       string
	Bytes      int
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Pointer strokes commit in bursts; keep headroom so the edit
		// path stays non-blocking.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS studies (
			study_id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			dim_x INTEGER NOT NULL,
			dim_y INTEGER NOT NULL,
			dim_z INTEGER NOT NULL,
			spacing_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS edits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			study_id TEXT NOT NULL,
			session_id TEXT,
			at TEXT NOT NULL,
			op TEXT NOT NULL,
			tool TEXT,
			label INTEGER,
			radius INTEGER,
			orientation TEXT,
			changed INTEGER NOT NULL,
			revision INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_study_at ON edits(study_id, at);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			study_id TEXT NOT NULL,
			revision INTEGER NOT NULL,
			path TEXT NOT NULL,
			voxels INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (study_id, revision)
		);`,
		`CREATE TABLE IF NOT EXISTS exports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			study_id TEXT NOT NULL,
			revision INTEGER NOT NULL,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exports_study ON exports(study_id, recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// UpsertStudy registers a study synchronously so that queries made right
// after upload see it.
func (s *SQLiteIndex) UpsertStudy(studyID, patientID string, dims [3]int, spacing [3]float64) error {
	if s == nil {
		return nil
	}
	sj, _ := json.Marshal(spacing)
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO studies(study_id,patient_id,dim_x,dim_y,dim_z,spacing_json,created_at) VALUES(?,?,?,?,?,?,?)`,
		studyID, patientID, dims[0], dims[1], dims[2], string(sj), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// LogEdit satisfies studio.AuditLogger.
func (s *SQLiteIndex) LogEdit(e studio.EditEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: e}:
	default:
		s.dropEdit.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		StudyID:  snap.Header.StudyID,
		Revision: snap.Header.Revision,
		Path:     path,
		Voxels:   len(snap.Labels),
		SavedAt:  snap.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) RecordExport(studyID string, revision uint64, kind, path string, size int) {
	if s == nil || s.closed.Load() {
		return
	}
	r := exportRow{
		StudyID:    studyID,
		Revision:   revision,
		Kind:       kind,
		Path:       path,
		Bytes:      size,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqExport, export: r}:
	default:
		s.dropExport.Add(1)
	}
}

// Sync blocks until every request enqueued before it has been committed.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqSync, done: done}
	<-done
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropEditTotal     uint64
	DropSnapshotTotal uint64
	DropExportTotal   uint64
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEditTotal:     s.dropEdit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropExportTotal:   s.dropExport.Load(),
	}
}

// CountEdits reports indexed edit rows for one study.
func (s *SQLiteIndex) CountEdits(studyID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM edits WHERE study_id=?`, studyID).Scan(&n)
	return n, err
}

// LatestSnapshot returns the newest snapshot path for a study, or "".
func (s *SQLiteIndex) LatestSnapshot(studyID string) (string, uint64, error) {
	var path string
	var rev uint64
	err := s.db.QueryRow(
		`SELECT path, revision FROM snapshots WHERE study_id=? ORDER BY revision DESC LIMIT 1`,
		studyID,
	).Scan(&path, &rev)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	return path, rev, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEdit, _ := s.db.Prepare(`INSERT INTO edits(study_id,session_id,at,op,tool,label,radius,orientation,changed,revision,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(study_id,revision,path,voxels,saved_at) VALUES(?,?,?,?,?)`)
	insertExport, _ := s.db.Prepare(`INSERT INTO exports(study_id,revision,kind,path,bytes,recorded_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertEdit != nil {
			_ = insertEdit.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
		if insertExport != nil {
			_ = insertExport.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEdit:
			e := r.edit
			raw, _ := json.Marshal(e)
			if insertEdit != nil {
				if _, err := tx.Stmt(insertEdit).Exec(
					e.StudyID,
					e.SessionID,
					e.Time.UTC().Format(time.RFC3339Nano),
					e.Op,
					e.Tool,
					e.Label,
					e.Radius,
					e.Orient,
					e.Changed,
					int64(e.Revision),
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					sn.StudyID,
					int64(sn.Revision),
					sn.Path,
					sn.Voxels,
					sn.SavedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqExport:
			ex := r.export
			if insertExport != nil {
				if _, err := tx.Stmt(insertExport).Exec(
					ex.StudyID,
					int64(ex.Revision),
					ex.Kind,
					ex.Path,
					ex.Bytes,
					ex.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
