package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/archive"
	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/indexdb"
	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/snapshot"
	"github.com/HYEJI0818/AIVIS-Q/internal/protocol"
	"github.com/HYEJI0818/AIVIS-Q/internal/reference"
	"github.com/HYEJI0818/AIVIS-Q/internal/studio"
)

// Uploaded CT volumes can be large; cap the multipart memory buffer, the
// rest spills to temp files.
const uploadMemoryLimit = 64 << 20

type adminDeps struct {
	mgr     *studio.Manager
	idx     *indexdb.SQLiteIndex
	ref     *reference.Table
	dataDir string
	log     *log.Logger
}

// registerAdmin wires the local-only study management endpoints. They do
// not touch the editing hot path.
func registerAdmin(mux *http.ServeMux, d adminDeps) {
	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			h(rw, r)
		}
	}

	mux.HandleFunc("POST /admin/v1/studies", guard(d.handleCreateStudy))
	mux.HandleFunc("GET /admin/v1/studies", guard(d.handleListStudies))
	mux.HandleFunc("GET /admin/v1/studies/{id}/report.csv", guard(d.handleReport))
	mux.HandleFunc("GET /admin/v1/studies/{id}/mask", guard(d.handleExportMask))
	mux.HandleFunc("GET /admin/v1/studies/{id}/grades", guard(d.handleGrades))
	mux.HandleFunc("POST /admin/v1/studies/{id}/snapshot", guard(d.handleSnapshot))
	mux.HandleFunc("POST /admin/v1/studies/{id}/restore", guard(d.handleRestore))
}

func (d adminDeps) handleCreateStudy(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	studyID := r.FormValue("study_id")
	patientID := r.FormValue("patient_id")
	if studyID == "" || patientID == "" {
		http.Error(rw, "study_id and patient_id required", http.StatusBadRequest)
		return
	}

	maskBytes, err := formFile(r, "mask")
	if err != nil {
		http.Error(rw, "mask file: "+err.Error(), http.StatusBadRequest)
		return
	}
	ctBytes, err := formFile(r, "ct")
	if err != nil && err != http.ErrMissingFile {
		http.Error(rw, "ct file: "+err.Error(), http.StatusBadRequest)
		return
	}

	st, err := d.mgr.Create(studyID, patientID, ctBytes, maskBytes)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := d.idx.UpsertStudy(st.ID, st.PatientID, st.Dims(), st.Spacing()); err != nil {
		d.log.Printf("index study %s: %v", st.ID, err)
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"study_id":   st.ID,
		"patient_id": st.PatientID,
		"dims":       st.Dims(),
		"spacing_mm": st.Spacing(),
	})
}

func (d adminDeps) handleListStudies(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{"studies": d.mgr.List()})
}

func (d adminDeps) handleReport(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rw.Header().Set("Content-Type", "text/csv; charset=utf-8")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"-report.csv"))
	if err := d.mgr.WriteReport(id, rw); err != nil {
		http.Error(rw, err.Error(), statusFor(err))
	}
}

func (d adminDeps) handleExportMask(rw http.ResponseWriter, r *http.Request) {
	st, err := d.mgr.Get(r.PathValue("id"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	data, err := st.ExportMask("admin")
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/octet-stream")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.ID+maskExt(data)))
	_, _ = rw.Write(data)
	d.idx.RecordExport(st.ID, st.Revision(), "MASK", "http:"+r.URL.Path, len(data))
}

// handleGrades reports organ volumes against the pediatric reference table.
func (d adminDeps) handleGrades(rw http.ResponseWriter, r *http.Request) {
	if d.ref == nil {
		http.Error(rw, "no reference table loaded", http.StatusServiceUnavailable)
		return
	}
	st, err := d.mgr.Get(r.PathValue("id"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	feats, err := st.Features()
	if err != nil {
		http.Error(rw, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	type graded struct {
		Measure    string  `json:"measure"`
		Value      float64 `json:"value"`
		Percentile float64 `json:"percentile"`
		Grade      string  `json:"grade"`
	}
	var out []graded
	add := func(measure string, v float64, b reference.Band) {
		out = append(out, graded{
			Measure:    measure,
			Value:      v,
			Percentile: b.Percentile(v),
			Grade:      string(b.Grade(v)),
		})
	}
	for _, f := range feats {
		switch f.Name {
		case "Liver":
			add("liver_volume_ml", f.VolumeML, d.ref.LiverVolumeML)
		case "Spleen":
			add("spleen_volume_ml", f.VolumeML, d.ref.SpleenVolumeML)
		}
	}

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{"study_id": st.ID, "grades": out})
}

func (d adminDeps) handleSnapshot(rw http.ResponseWriter, r *http.Request) {
	st, err := d.mgr.Get(r.PathValue("id"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	path, err := writeStudySnapshot(d.dataDir, st, d.idx)
	rw.Header().Set("Content-Type", "application/json")
	if err != nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "path": path, "revision": st.Revision()})
}

func (d adminDeps) handleRestore(rw http.ResponseWriter, r *http.Request) {
	st, err := d.mgr.Get(r.PathValue("id"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	var (
		path string
		rev  uint64
	)
	if d.idx != nil {
		path, rev, _ = d.idx.LatestSnapshot(st.ID)
	}
	if path == "" {
		// Without the index (or before its first commit) fall back to
		// scanning the snapshot directory.
		var ok bool
		path, rev, ok = archive.Latest(filepath.Join(d.dataDir, "snapshots"), st.ID)
		if !ok {
			http.Error(rw, "no snapshot recorded", http.StatusNotFound)
			return
		}
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := st.RestoreEdited(snap.Labels); err != nil {
		http.Error(rw, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	restoreSettings(st, snap.Settings)

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"ok":       true,
		"path":     path,
		"revision": rev,
		"saved_at": snap.SavedAt.Format(time.RFC3339),
	})
}

// restoreSettings reapplies snapshotted tool state; individual failures
// (e.g. a label removed from the catalog) leave the current value.
func restoreSettings(st *studio.Study, s snapshot.SettingsV1) {
	_ = st.SetLabel(s.Label)
	_ = st.SetTool(s.Tool)
	_ = st.SetRadius(s.Radius)
	_ = st.SetOrientation(s.Orientation)
	_ = st.SetView(s.View)
	_ = st.SetWindow(s.Brightness, s.Contrast)
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch studio.CodeFor(err) {
	case protocol.ErrStudyNotFound:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}
