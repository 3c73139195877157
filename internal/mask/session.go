package mask

import "fmt"

// Renderer is the display-side collaborator: it repaints after the label
// buffer changes. The real implementation lives on the other side of the
// websocket; tests use a recording fake. The session is injected with it,
// never reaching for global state.
type Renderer interface {
	Refresh()
}

// ViewMode selects which buffer the renderer displays.
type ViewMode int

const (
	ViewOriginal ViewMode = iota
	ViewEdited
)

func (m ViewMode) String() string {
	if m == ViewEdited {
		return "EDITED"
	}
	return "ORIGINAL"
}

func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "ORIGINAL", "original":
		return ViewOriginal, nil
	case "EDITED", "edited":
		return ViewEdited, nil
	}
	return 0, fmt.Errorf("%w: view mode %q", ErrInvalidArgument, s)
}

// EditFocus is the last-edited location expressed per orientation, so a
// comparison view can jump every plane to the voxel last touched.
type EditFocus struct {
	Voxel    Voxel
	Axial    int // slice index along z
	Coronal  int // slice index along y
	Sagittal int // slice index along x

	// Normalized crosshair fractions, 0.5 for single-slice axes.
	FracX, FracY, FracZ float64
}

// SessionConfig carries the session-level knobs. Zero values get defaults.
type SessionConfig struct {
	Catalog        Catalog
	UndoDepth      int // max strokes kept for undo
	MaxBrushRadius int
}

const (
	defaultUndoDepth      = 16
	defaultMaxBrushRadius = 64
)

// Session orchestrates the buffers, stroke controller and selection state
// for one loaded volume. It owns the original/edited duality: the original
// snapshot is immutable after capture and only ResetToOriginal copies from
// it, never into it. All methods are synchronous and assume a single logical
// pointer stream.
type Session struct {
	cfg      SessionConfig
	renderer Renderer

	dims     Dims
	current  *Buffer
	original *Buffer

	label    Label
	tool     Tool
	radius   int
	orient   Orientation
	viewMode ViewMode

	lastEdited *Voxel
	stroke     *StrokeController
	undo       undoStack
	dirty      bool
}

// NewSession builds an empty session; LoadOriginal must run before editing.
// renderer may be nil (no-op notifications).
func NewSession(cfg SessionConfig, renderer Renderer) *Session {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.UndoDepth <= 0 {
		cfg.UndoDepth = defaultUndoDepth
	}
	if cfg.MaxBrushRadius <= 0 {
		cfg.MaxBrushRadius = defaultMaxBrushRadius
	}
	s := &Session{
		cfg:      cfg,
		renderer: renderer,
		radius:   0,
		tool:     ToolPaint,
		orient:   Axial,
		viewMode: ViewOriginal,
	}
	if len(cfg.Catalog) > 0 {
		s.label = cfg.Catalog[0].ID
	}
	s.undo.max = cfg.UndoDepth
	return s
}

// LoadOriginal seeds the session with a mask payload: the current buffer
// takes the bytes and the original snapshot is captured from it. View mode
// returns to ORIGINAL and the last-edited bookkeeping resets.
func (s *Session) LoadOriginal(dims Dims, payload []byte) error {
	buf, err := FromBytes(dims, payload)
	if err != nil {
		return err
	}
	s.dims = dims
	s.current = buf
	s.original = buf.Clone()
	s.lastEdited = nil
	s.stroke = nil
	s.undo.reset()
	s.viewMode = ViewOriginal
	s.dirty = false
	s.notify()
	return nil
}

// ApplyEditedOverride resumes a previous editing session: the payload
// replaces the current buffer without touching the original snapshot.
func (s *Session) ApplyEditedOverride(payload []byte) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if err := s.current.SetBytes(payload); err != nil {
		return err
	}
	s.undo.reset()
	s.dirty = true
	s.notify()
	return nil
}

func (s *Session) SelectLabel(id Label) error {
	if !s.cfg.Catalog.Has(id) {
		return fmt.Errorf("%w: %d", ErrUnknownLabel, id)
	}
	s.label = id
	return nil
}

func (s *Session) SelectTool(t Tool) error {
	if t != ToolPaint && t != ToolErase {
		return fmt.Errorf("%w: %d", ErrUnknownTool, int(t))
	}
	s.tool = t
	return nil
}

func (s *Session) SetBrushRadius(r int) error {
	if r < 0 || r > s.cfg.MaxBrushRadius {
		return fmt.Errorf("%w: %d (max %d)", ErrBadRadius, r, s.cfg.MaxBrushRadius)
	}
	s.radius = r
	return nil
}

func (s *Session) SetOrientation(o Orientation) error {
	switch o {
	case Axial, Coronal, Sagittal:
	default:
		return fmt.Errorf("%w: orientation %d", ErrInvalidArgument, int(o))
	}
	// An orientation change ends any stroke in flight.
	s.EndStroke()
	s.orient = o
	return nil
}

// SetViewMode is a pure state flip; neither buffer is mutated.
func (s *Session) SetViewMode(m ViewMode) error {
	if m != ViewOriginal && m != ViewEdited {
		return fmt.Errorf("%w: view mode %d", ErrInvalidArgument, int(m))
	}
	s.viewMode = m
	s.notify()
	return nil
}

// BeginStroke starts a stroke at v with the current tool/label/radius/
// orientation. A stroke already in flight is ended first.
func (s *Session) BeginStroke(v Voxel) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if s.stroke != nil && s.stroke.Active() {
		s.EndStroke()
	}
	s.stroke = newStrokeController(s.current, s.tool, s.label, s.radius, s.orient, s.notify)
	s.stroke.Begin(v)
	return nil
}

// ContinueStroke extends the active stroke; with none active it begins one.
func (s *Session) ContinueStroke(v Voxel) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if s.stroke == nil || !s.stroke.Active() {
		return s.BeginStroke(v)
	}
	s.stroke.Continue(v)
	return nil
}

// EndStroke finishes the active stroke, pushes its deltas onto the undo
// stack and records the last sample for re-centering. Safe to call when
// idle. Returns the number of voxels the stroke changed.
func (s *Session) EndStroke() int {
	if s.stroke == nil || !s.stroke.Active() {
		return 0
	}
	last, hasLast := s.stroke.LastSample()
	diff := s.stroke.End()
	if len(diff) > 0 {
		s.undo.push(diff)
		s.dirty = true
	}
	// Every completed stroke re-centers the comparison views, even one that
	// changed nothing (erasing over background is the common case).
	if hasLast {
		s.CommitStroke(last)
	}
	return len(diff)
}

// CancelStroke returns to idle on pointer-leave. Samples already applied
// persist (and stay undoable); the last-edited voxel is not updated.
// Returns the number of voxels the abandoned stroke changed.
func (s *Session) CancelStroke() int {
	if s.stroke == nil || !s.stroke.Active() {
		return 0
	}
	diff := s.stroke.End()
	if len(diff) > 0 {
		s.undo.push(diff)
		s.dirty = true
	}
	return len(diff)
}

// CommitStroke records the voxel a completed stroke last touched.
func (s *Session) CommitStroke(last Voxel) {
	v := last
	s.lastEdited = &v
}

// Undo reverts the most recent completed stroke. Returns false with an
// empty stack.
func (s *Session) Undo() bool {
	diff := s.undo.pop()
	if diff == nil {
		return false
	}
	for i := len(diff) - 1; i >= 0; i-- {
		s.current.setAt(diff[i].idx, Label(diff[i].prev))
	}
	s.notify()
	return true
}

// UndoDepth is the number of strokes currently undoable.
func (s *Session) UndoDepth() int { return s.undo.depth() }

// ResetToOriginal discards all edits by copying the original snapshot back
// into the current buffer. Irreversible for unsaved edits; the UI layer is
// responsible for confirming. lastEditedVoxel is left as is. The undo stack
// is cleared since its deltas no longer describe the buffer.
func (s *Session) ResetToOriginal() error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	s.EndStroke()
	if err := s.current.CopyFrom(s.original); err != nil {
		return err
	}
	s.undo.reset()
	s.dirty = false
	s.notify()
	return nil
}

// ExportCurrent returns a defensive copy of the current buffer's bytes.
func (s *Session) ExportCurrent() ([]byte, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.current.Bytes(), nil
}

// ViewBuffer is the buffer the renderer must display for the active view
// mode: the untouched original snapshot, or the working copy.
func (s *Session) ViewBuffer() *Buffer {
	if s.viewMode == ViewOriginal {
		return s.original
	}
	return s.current
}

// Focus resolves the last-edited voxel into per-orientation slice indices
// and crosshair fractions. ok is false before any committed stroke.
func (s *Session) Focus() (EditFocus, bool) {
	if s.lastEdited == nil {
		return EditFocus{}, false
	}
	v := *s.lastEdited
	return EditFocus{
		Voxel:    v,
		Axial:    clampSlice(v.Z, s.dims.Z),
		Coronal:  clampSlice(v.Y, s.dims.Y),
		Sagittal: clampSlice(v.X, s.dims.X),
		FracX:    NormalizedFromSliceIndex(clampSlice(v.X, s.dims.X), s.dims.X),
		FracY:    NormalizedFromSliceIndex(clampSlice(v.Y, s.dims.Y), s.dims.Y),
		FracZ:    NormalizedFromSliceIndex(clampSlice(v.Z, s.dims.Z), s.dims.Z),
	}, true
}

func clampSlice(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func (s *Session) Loaded() bool             { return s.current != nil }
func (s *Session) Dirty() bool              { return s.dirty }
func (s *Session) Dims() Dims               { return s.dims }
func (s *Session) Catalog() Catalog         { return s.cfg.Catalog }
func (s *Session) Label() Label             { return s.label }
func (s *Session) Tool() Tool               { return s.tool }
func (s *Session) BrushRadius() int         { return s.radius }
func (s *Session) MaxBrushRadius() int      { return s.cfg.MaxBrushRadius }
func (s *Session) Orientation() Orientation { return s.orient }
func (s *Session) ViewMode() ViewMode       { return s.viewMode }

// StrokeActive reports whether a stroke is in flight.
func (s *Session) StrokeActive() bool {
	return s.stroke != nil && s.stroke.Active()
}

// SetRenderer swaps the display collaborator, e.g. when an editor
// connection attaches or drops. nil silences notifications.
func (s *Session) SetRenderer(r Renderer) { s.renderer = r }

func (s *Session) LastEditedVoxel() (Voxel, bool) {
	if s.lastEdited == nil {
		return Voxel{}, false
	}
	return *s.lastEdited, true
}

func (s *Session) requireLoaded() error {
	if s.current == nil {
		return ErrNoVolume
	}
	return nil
}

func (s *Session) notify() {
	if s.renderer != nil {
		s.renderer.Refresh()
	}
}
