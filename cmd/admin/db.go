package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	studyID := fs.String("study", "", "study_id filter (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "studies"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "edits.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "studies":
		rows, err := db.Query(`SELECT study_id,patient_id,dim_x,dim_y,dim_z,spacing_json,created_at FROM studies ORDER BY study_id LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				StudyID     string `json:"study_id"`
				PatientID   string `json:"patient_id"`
				DimX        int    `json:"dim_x"`
				DimY        int    `json:"dim_y"`
				DimZ        int    `json:"dim_z"`
				SpacingJSON string `json:"spacing_json"`
				CreatedAt   string `json:"created_at"`
			}
			if err := rows.Scan(&r.StudyID, &r.PatientID, &r.DimX, &r.DimY, &r.DimZ, &r.SpacingJSON, &r.CreatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "edits":
		query := `SELECT id,study_id,session_id,at,op,tool,label,radius,orientation,changed,revision FROM edits ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*studyID) != "" {
			query = `SELECT id,study_id,session_id,at,op,tool,label,radius,orientation,changed,revision FROM edits WHERE study_id=? ORDER BY id DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*studyID), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID          int64          `json:"id"`
				StudyID     string         `json:"study_id"`
				SessionID   sql.NullString `json:"session_id"`
				At          string         `json:"at"`
				Op          string         `json:"op"`
				Tool        sql.NullString `json:"tool"`
				Label       sql.NullInt64  `json:"label"`
				Radius      sql.NullInt64  `json:"radius"`
				Orientation sql.NullString `json:"orientation"`
				Changed     int            `json:"changed"`
				Revision    int64          `json:"revision"`
			}
			if err := rows.Scan(&r.ID, &r.StudyID, &r.SessionID, &r.At, &r.Op, &r.Tool, &r.Label, &r.Radius, &r.Orientation, &r.Changed, &r.Revision); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "snapshots":
		query := `SELECT study_id,revision,path,voxels,saved_at FROM snapshots ORDER BY study_id,revision DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*studyID) != "" {
			query = `SELECT study_id,revision,path,voxels,saved_at FROM snapshots WHERE study_id=? ORDER BY revision DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*studyID), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				StudyID  string `json:"study_id"`
				Revision int64  `json:"revision"`
				Path     string `json:"path"`
				Voxels   int64  `json:"voxels"`
				SavedAt  string `json:"saved_at"`
			}
			if err := rows.Scan(&r.StudyID, &r.Revision, &r.Path, &r.Voxels, &r.SavedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "exports":
		query := `SELECT id,study_id,revision,kind,path,bytes,recorded_at FROM exports ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*studyID) != "" {
			query = `SELECT id,study_id,revision,kind,path,bytes,recorded_at FROM exports WHERE study_id=? ORDER BY id DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*studyID), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID         int64  `json:"id"`
				StudyID    string `json:"study_id"`
				Revision   int64  `json:"revision"`
				Kind       string `json:"kind"`
				Path       string `json:"path"`
				Bytes      int64  `json:"bytes"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.ID, &r.StudyID, &r.Revision, &r.Kind, &r.Path, &r.Bytes, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "activity":
		rows, err := db.Query(`SELECT study_id,COUNT(*),SUM(changed),MAX(revision) FROM edits GROUP BY study_id ORDER BY study_id`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				StudyID       string `json:"study_id"`
				Edits         int64  `json:"edits"`
				ChangedVoxels int64  `json:"changed_voxels"`
				MaxRevision   int64  `json:"max_revision"`
			}
			if err := rows.Scan(&r.StudyID, &r.Edits, &r.ChangedVoxels, &r.MaxRevision); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-study ID] [-limit N] studies|edits|snapshots|exports|activity")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
