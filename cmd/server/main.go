package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/HYEJI0818/AIVIS-Q/internal/config"
	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/archive"
	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/indexdb"
	persistlog "github.com/HYEJI0818/AIVIS-Q/internal/persistence/log"
	"github.com/HYEJI0818/AIVIS-Q/internal/persistence/snapshot"
	"github.com/HYEJI0818/AIVIS-Q/internal/reference"
	"github.com/HYEJI0818/AIVIS-Q/internal/studio"
	"github.com/HYEJI0818/AIVIS-Q/internal/transport/ws"
)

// Autosave keeps a short tail of snapshots per study; older ones are pruned.
const snapshotKeep = 5

func main() {
	var (
		addr      = flag.String("addr", ":8080", "http listen address")
		configDir = flag.String("configs", "./configs", "config directory")
		dataDir   = flag.String("data", "./data", "runtime data directory")
		refPath   = flag.String("reference", "", "pediatric reference table (default: <configs>/pediatric_reference.yaml)")
		disableDB = flag.Bool("disable_db", false, "disable the sqlite edit index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(filepath.Join(*configDir, "editor.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("editor.yaml not found in %s; using defaults", *configDir)
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}
	sessCfg, err := cfg.SessionConfig()
	if err != nil {
		logger.Fatalf("label catalog: %v", err)
	}

	rp := strings.TrimSpace(*refPath)
	if rp == "" {
		rp = filepath.Join(*configDir, "pediatric_reference.yaml")
	}
	var refTable *reference.Table
	if t, err := reference.Load(rp); err != nil {
		if os.IsNotExist(err) {
			logger.Printf("reference table not found (%s); grading disabled", rp)
		} else {
			logger.Fatalf("load reference: %v", err)
		}
	} else {
		refTable = t
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "edits.db"))
		if err != nil {
			logger.Fatalf("open edit index: %v", err)
		}
		defer idx.Close()
	}

	editLog := persistlog.NewEditLogger(*dataDir, func(err error) {
		logger.Printf("edit log: %v", err)
	})
	defer editLog.Close()

	mgr := studio.NewManager(sessCfg, multiAudit{a: editLog, b: idx}, logger)

	ctx, cancel := signalContext()
	defer cancel()

	saveFn := func(studyID string, data []byte) error {
		st, err := mgr.Get(studyID)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s-rev%d%s", studyID, st.Revision(), maskExt(data))
		path := filepath.Join(*dataDir, "exports", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		idx.RecordExport(studyID, st.Revision(), "MASK", path, len(data))
		logger.Printf("saved mask for %s to %s (%d bytes)", studyID, path, len(data))
		return nil
	}

	// Autosave loop: snapshot dirty studies so a crash loses at most one
	// interval of edits.
	if cfg.AutosaveEverySec > 0 {
		go func() {
			t := time.NewTicker(time.Duration(cfg.AutosaveEverySec) * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					for _, id := range mgr.List() {
						st, err := mgr.Get(id)
						if err != nil || !st.Dirty() {
							continue
						}
						if _, err := writeStudySnapshot(*dataDir, st, idx); err != nil {
							logger.Printf("autosave %s: %v", id, err)
							continue
						}
						if _, err := archive.Prune(filepath.Join(*dataDir, "snapshots"), id, snapshotKeep); err != nil {
							logger.Printf("prune snapshots %s: %v", id, err)
						}
					}
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP aivisq_studies_loaded Currently loaded studies.\n")
		fmt.Fprintf(rw, "# TYPE aivisq_studies_loaded gauge\n")
		fmt.Fprintf(rw, "aivisq_studies_loaded %d\n", len(mgr.List()))

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP aivisq_index_queue_depth Edit index channel backlog depth.\n")
			fmt.Fprintf(rw, "# TYPE aivisq_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "aivisq_index_queue_depth %d\n", s.QueueDepth)

			fmt.Fprintf(rw, "# HELP aivisq_index_dropped_total Rows dropped because the index queue was full.\n")
			fmt.Fprintf(rw, "# TYPE aivisq_index_dropped_total counter\n")
			fmt.Fprintf(rw, "aivisq_index_dropped_total{kind=%q} %d\n", "edit", s.DropEditTotal)
			fmt.Fprintf(rw, "aivisq_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
			fmt.Fprintf(rw, "aivisq_index_dropped_total{kind=%q} %d\n", "export", s.DropExportTotal)
		}
	})

	enableAdminHTTP := envBool("AQ_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("AQ_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		registerAdmin(mux, adminDeps{
			mgr:     mgr,
			idx:     idx,
			ref:     refTable,
			dataDir: *dataDir,
			log:     logger,
		})
	} else {
		logger.Printf("admin endpoints disabled (AQ_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(mgr, saveFn, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func writeStudySnapshot(dataDir string, st *studio.Study, idx *indexdb.SQLiteIndex) (string, error) {
	labels, err := st.EditedLabels()
	if err != nil {
		return "", err
	}
	set := st.Settings()
	snap := snapshot.SnapshotV1{
		Header:    snapshot.Header{Version: 1, StudyID: st.ID, Revision: st.Revision()},
		PatientID: st.PatientID,
		Dims:      st.Dims(),
		SpacingMM: st.Spacing(),
		SavedAt:   time.Now().UTC(),
		Settings: snapshot.SettingsV1{
			Label:       set.Label,
			Tool:        set.Tool,
			Radius:      set.Radius,
			Orientation: set.Orientation,
			View:        set.View,
			Brightness:  set.Brightness,
			Contrast:    set.Contrast,
		},
		Labels: labels,
	}
	path := filepath.Join(dataDir, "snapshots", fmt.Sprintf("%s-rev%d.snap.zst", st.ID, snap.Header.Revision))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	idx.RecordSnapshot(path, snap)
	return path, nil
}

func maskExt(data []byte) string {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		return ".nii.gz"
	}
	return ".nii"
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// multiAudit fans edit events out to the JSONL log and the sqlite index.
type multiAudit struct {
	a studio.AuditLogger
	b *indexdb.SQLiteIndex
}

func (m multiAudit) LogEdit(e studio.EditEvent) {
	if m.a != nil {
		m.a.LogEdit(e)
	}
	m.b.LogEdit(e) // nil-safe
}
