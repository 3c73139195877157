package studio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HYEJI0818/AIVIS-Q/internal/encoding"
	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
	"github.com/HYEJI0818/AIVIS-Q/internal/nifti"
	"github.com/HYEJI0818/AIVIS-Q/internal/protocol"
)

var (
	ErrBusy          = errors.New("studio: study already has an editor attached")
	ErrNotFound      = errors.New("studio: study not found")
	ErrNothingToUndo = errors.New("studio: nothing to undo")
)

// Study owns one loaded CT/mask pair and its edit session. All methods are
// safe for concurrent use; one editor connection may be attached at a time.
type Study struct {
	ID        string
	PatientID string

	mu       sync.Mutex
	sess     *mask.Session
	ct       *nifti.Volume
	maskSrc  []byte // original mask file bytes, kept for export splicing
	spacing  [3]float64
	dims     mask.Dims
	revision uint64
	attached bool

	brightness int
	contrast   int

	audit AuditLogger
}

func newStudy(id, patientID string, cfg mask.SessionConfig, audit AuditLogger) *Study {
	return &Study{
		ID:         id,
		PatientID:  patientID,
		sess:       mask.NewSession(cfg, nil),
		brightness: 50,
		contrast:   50,
		audit:      audit,
	}
}

// Attach claims the study for a single editor connection and installs its
// renderer. Release with Detach.
func (st *Study) Attach(r mask.Renderer) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.attached {
		return ErrBusy
	}
	st.attached = true
	st.sess.SetRenderer(r)
	return nil
}

func (st *Study) Detach() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sess.EndStroke()
	st.sess.SetRenderer(nil)
	st.attached = false
}

// Welcome builds the handshake reply for an attached connection.
func (st *Study) Welcome(sessionID string) protocol.WelcomeMsg {
	st.mu.Lock()
	defer st.mu.Unlock()

	labels := make([]protocol.LabelInfo, 0, len(st.sess.Catalog()))
	for _, l := range st.sess.Catalog() {
		labels = append(labels, protocol.LabelInfo{
			ID:    int(l.ID),
			Name:  l.Name,
			Color: fmt.Sprintf("#%02x%02x%02x", l.Color.R, l.Color.G, l.Color.B),
		})
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		StudyID:         st.ID,
		Dims:            [3]int{st.dims.X, st.dims.Y, st.dims.Z},
		SpacingMM:       st.spacing,
		Labels:          labels,
		Settings:        st.settingsLocked(),
	}
}

// Settings snapshots the mutable tool state.
func (st *Study) Settings() protocol.EditSettings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.settingsLocked()
}

func (st *Study) settingsLocked() protocol.EditSettings {
	return protocol.EditSettings{
		Label:       int(st.sess.Label()),
		Tool:        st.sess.Tool().String(),
		Radius:      st.sess.BrushRadius(),
		MaxRadius:   st.sess.MaxBrushRadius(),
		Orientation: st.sess.Orientation().String(),
		View:        st.sess.ViewMode().String(),
		Brightness:  st.brightness,
		Contrast:    st.contrast,
	}
}

// State builds a STATE message.
func (st *Study) State() protocol.StateMsg {
	st.mu.Lock()
	defer st.mu.Unlock()
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Settings:        st.settingsLocked(),
		UndoDepth:       st.sess.UndoDepth(),
		StrokeActive:    st.sess.StrokeActive(),
	}
	if f, ok := st.sess.Focus(); ok {
		msg.Focus = &protocol.FocusInfo{
			Voxel:         [3]int{f.Voxel.X, f.Voxel.Y, f.Voxel.Z},
			AxialSlice:    f.Axial,
			CoronalSlice:  f.Coronal,
			SagittalSlice: f.Sagittal,
			Fractions:     [3]float64{f.FracX, f.FracY, f.FracZ},
		}
	}
	return msg
}

// MaskMsg encodes the currently viewed label payload for the wire.
func (st *Study) MaskMsg() (protocol.MaskMsg, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.sess.Loaded() {
		return protocol.MaskMsg{}, mask.ErrNoVolume
	}
	buf := st.sess.ViewBuffer()
	return protocol.MaskMsg{
		Type:            protocol.TypeMask,
		ProtocolVersion: protocol.Version,
		Revision:        st.revision,
		Encoding:        "RLE",
		Data:            encoding.EncodeRLE(buf.Bytes()),
	}, nil
}

// Revision reports the current mask revision.
func (st *Study) Revision() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.revision
}

func (st *Study) Dims() [3]int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return [3]int{st.dims.X, st.dims.Y, st.dims.Z}
}

func (st *Study) Spacing() [3]float64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.spacing
}

// Dirty reports whether unsaved edits exist.
func (st *Study) Dirty() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sess.Dirty()
}

// Pointer applies one gesture sample. END and LEAVE finish the stroke;
// LEAVE abandons interpolation continuity but keeps painted voxels.
func (st *Study) Pointer(sessionID, phase string, v mask.Voxel) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch phase {
	case protocol.PhaseBegin:
		return st.sess.BeginStroke(v)
	case protocol.PhaseMove:
		return st.sess.ContinueStroke(v)
	case protocol.PhaseEnd:
		changed := st.sess.EndStroke()
		if changed > 0 {
			st.revision++
		}
		st.logEdit(sessionID, "STROKE", changed)
		return nil
	case protocol.PhaseLeave:
		changed := st.sess.CancelStroke()
		if changed > 0 {
			st.revision++
		}
		st.logEdit(sessionID, "STROKE", changed)
		return nil
	default:
		return fmt.Errorf("%w: pointer phase %q", mask.ErrInvalidArgument, phase)
	}
}

func (st *Study) SetLabel(l int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if l < 0 || l > 0xFF {
		return fmt.Errorf("%w: %d", mask.ErrUnknownLabel, l)
	}
	return st.sess.SelectLabel(mask.Label(l))
}

func (st *Study) SetTool(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	tool, err := mask.ParseTool(name)
	if err != nil {
		return err
	}
	return st.sess.SelectTool(tool)
}

func (st *Study) SetRadius(r int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sess.SetBrushRadius(r)
}

func (st *Study) SetOrientation(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	o, err := mask.ParseOrientation(name)
	if err != nil {
		return err
	}
	return st.sess.SetOrientation(o)
}

func (st *Study) SetView(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	vm, err := mask.ParseViewMode(name)
	if err != nil {
		return err
	}
	return st.sess.SetViewMode(vm)
}

// SetWindow updates display brightness/contrast (0..100, 50 neutral).
func (st *Study) SetWindow(brightness, contrast int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if brightness < 0 || brightness > 100 || contrast < 0 || contrast > 100 {
		return fmt.Errorf("%w: window %d/%d", mask.ErrInvalidArgument, brightness, contrast)
	}
	st.brightness = brightness
	st.contrast = contrast
	return nil
}

// Colormap returns the label LUT under the current window settings.
func (st *Study) Colormap() []mask.RGB {
	st.mu.Lock()
	defer st.mu.Unlock()
	return mask.AdjustedColormap(st.sess.Catalog(), st.brightness, st.contrast)
}

func (st *Study) Undo(sessionID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.sess.Undo() {
		return ErrNothingToUndo
	}
	st.revision++
	st.logEdit(sessionID, "UNDO", 0)
	return nil
}

func (st *Study) Reset(sessionID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.sess.ResetToOriginal(); err != nil {
		return err
	}
	st.revision++
	st.logEdit(sessionID, "RESET", 0)
	return nil
}

// ExportMask splices the edited labels into the original mask file.
func (st *Study) ExportMask(sessionID string) ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	labels, err := st.sess.ExportCurrent()
	if err != nil {
		return nil, err
	}
	out, err := nifti.ReplacePayload(st.maskSrc, labels)
	if err != nil {
		return nil, err
	}
	st.logEdit(sessionID, "SAVE", 0)
	return out, nil
}

// EditedLabels copies the current edited payload.
func (st *Study) EditedLabels() ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sess.ExportCurrent()
}

// RestoreEdited replaces the edited buffer, e.g. from a snapshot.
func (st *Study) RestoreEdited(labels []byte) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.sess.ApplyEditedOverride(labels); err != nil {
		return err
	}
	st.revision++
	return nil
}

func (st *Study) logEdit(sessionID, op string, changed int) {
	if st.audit == nil {
		return
	}
	st.audit.LogEdit(EditEvent{
		Time:      time.Now().UTC(),
		StudyID:   st.ID,
		SessionID: sessionID,
		Op:        op,
		Tool:      st.sess.Tool().String(),
		Label:     int(st.sess.Label()),
		Radius:    st.sess.BrushRadius(),
		Orient:    st.sess.Orientation().String(),
		Changed:   changed,
		Revision:  st.revision,
	})
}

// CodeFor maps engine errors to wire error codes.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return protocol.ErrStudyBusy
	case errors.Is(err, ErrNotFound):
		return protocol.ErrStudyNotFound
	case errors.Is(err, mask.ErrOutOfBounds):
		return protocol.ErrOutOfBounds
	case errors.Is(err, mask.ErrDimensionMismatch):
		return protocol.ErrDimMismatch
	case errors.Is(err, ErrNothingToUndo):
		return protocol.ErrNothingToUndo
	case errors.Is(err, mask.ErrNoVolume):
		return protocol.ErrNoVolume
	case errors.Is(err, mask.ErrUnknownLabel):
		return protocol.ErrBadLabel
	case errors.Is(err, mask.ErrBadRadius):
		return protocol.ErrBadRadius
	case errors.Is(err, mask.ErrUnknownTool):
		return protocol.ErrBadTool
	case errors.Is(err, mask.ErrInvalidArgument):
		return protocol.ErrProtoBadRequest
	default:
		return protocol.ErrInternal
	}
}
