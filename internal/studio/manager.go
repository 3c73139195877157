package studio

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"github.com/HYEJI0818/AIVIS-Q/internal/analysis"
	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
	"github.com/HYEJI0818/AIVIS-Q/internal/nifti"
	"github.com/HYEJI0818/AIVIS-Q/internal/report"
)

// Manager holds all loaded studies and builds new ones from uploaded
// volume files.
type Manager struct {
	mu      sync.Mutex
	studies map[string]*Study

	cfg   mask.SessionConfig
	audit AuditLogger
	log   *log.Logger
}

func NewManager(cfg mask.SessionConfig, audit AuditLogger, logger *log.Logger) *Manager {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Manager{
		studies: make(map[string]*Study),
		cfg:     cfg,
		audit:   audit,
		log:     logger,
	}
}

// Create decodes the uploaded mask (and optional CT) and registers a new
// study. The mask must be a uint8 NIfTI volume; a CT, when given, must share
// its dimensions.
func (m *Manager) Create(id, patientID string, ctFile, maskFile []byte) (*Study, error) {
	mv, err := nifti.Decode(maskFile)
	if err != nil {
		return nil, fmt.Errorf("studio: mask volume: %w", err)
	}
	labels, err := mv.Labels()
	if err != nil {
		return nil, fmt.Errorf("studio: mask volume: %w", err)
	}

	var cv *nifti.Volume
	if len(ctFile) > 0 {
		cv, err = nifti.Decode(ctFile)
		if err != nil {
			return nil, fmt.Errorf("studio: ct volume: %w", err)
		}
		if cv.Dims != mv.Dims {
			return nil, fmt.Errorf("%w: ct %s vs mask %s", mask.ErrDimensionMismatch, cv.Dims, mv.Dims)
		}
	}

	st := newStudy(id, patientID, m.cfg, m.audit)
	st.ct = cv
	st.maskSrc = append([]byte(nil), maskFile...)
	st.spacing = mv.Spacing
	st.dims = mv.Dims
	if err := st.sess.LoadOriginal(mv.Dims, labels); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.studies[id]; dup {
		return nil, fmt.Errorf("studio: study %q already exists", id)
	}
	m.studies[id] = st
	if m.log != nil {
		m.log.Printf("study %s loaded: dims=%s spacing=%.2f/%.2f/%.2fmm ct=%v",
			id, mv.Dims, mv.Spacing[0], mv.Spacing[1], mv.Spacing[2], cv != nil)
	}
	return st, nil
}

func (m *Manager) Get(id string) (*Study, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.studies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return st, nil
}

func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.studies))
	for id := range m.studies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Features computes the per-organ feature vector against the current edited
// mask. Requires the study to carry a CT volume.
func (st *Study) Features() ([]analysis.OrganFeatures, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ct == nil {
		return nil, fmt.Errorf("studio: study %s has no CT volume", st.ID)
	}
	hu, err := st.ct.Values()
	if err != nil {
		return nil, err
	}
	labels, err := st.sess.ExportCurrent()
	if err != nil {
		return nil, err
	}
	return analysis.Compute(hu, labels, st.dims, st.spacing, st.sess.Catalog())
}

// WriteReport renders the study's feature CSV.
func (m *Manager) WriteReport(id string, w io.Writer) error {
	st, err := m.Get(id)
	if err != nil {
		return err
	}
	feats, err := st.Features()
	if err != nil {
		return err
	}
	return report.WriteCSV(w, st.PatientID, st.ID, feats)
}
