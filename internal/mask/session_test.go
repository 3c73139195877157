package mask

import (
	"bytes"
	"errors"
	"testing"
)

type countingRenderer struct{ refreshes int }

func (r *countingRenderer) Refresh() { r.refreshes++ }

func newLoadedSession(t *testing.T, d Dims) *Session {
	t.Helper()
	s := NewSession(SessionConfig{}, nil)
	if err := s.LoadOriginal(d, make([]byte, d.Count())); err != nil {
		t.Fatalf("LoadOriginal: %v", err)
	}
	return s
}

// Scenario from the acceptance set: 4x4x4 zero volume, label 1, paint,
// radius 0, axial, begin at (2,2,0) -> the (2,2,*) line becomes 1.
func TestSession_PaintDotScenario(t *testing.T) {
	s := newLoadedSession(t, Dims{X: 4, Y: 4, Z: 4})
	if err := s.SelectLabel(1); err != nil {
		t.Fatalf("SelectLabel: %v", err)
	}
	if err := s.SelectTool(ToolPaint); err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
	if err := s.SetBrushRadius(0); err != nil {
		t.Fatalf("SetBrushRadius: %v", err)
	}
	if err := s.BeginStroke(Voxel{X: 2, Y: 2, Z: 0}); err != nil {
		t.Fatalf("BeginStroke: %v", err)
	}
	if n := s.EndStroke(); n != 4 {
		t.Fatalf("changed voxels: got %d want 4", n)
	}

	out, err := s.ExportCurrent()
	if err != nil {
		t.Fatalf("ExportCurrent: %v", err)
	}
	d := s.Dims()
	for z := 0; z < 4; z++ {
		if out[d.Index(2, 2, z)] != 1 {
			t.Fatalf("voxel (2,2,%d) not painted", z)
		}
	}
	painted := 0
	for _, b := range out {
		if b != 0 {
			painted++
		}
	}
	if painted != 4 {
		t.Fatalf("painted voxels: got %d want 4", painted)
	}
}

func TestSession_SelectValidation(t *testing.T) {
	s := newLoadedSession(t, Dims{X: 2, Y: 2, Z: 2})
	if err := s.SelectLabel(99); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SelectLabel(99): want ErrInvalidArgument, got %v", err)
	}
	if err := s.SetBrushRadius(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetBrushRadius(-1): want ErrInvalidArgument, got %v", err)
	}
	// Rejected input retains prior state.
	if got := s.Label(); got != 1 {
		t.Fatalf("label after rejected select: got %d want 1", got)
	}
	if got := s.BrushRadius(); got != 0 {
		t.Fatalf("radius after rejected set: got %d want 0", got)
	}
}

// Reset fidelity: after arbitrary strokes, reset restores the original
// byte-for-byte.
func TestSession_ResetFidelity(t *testing.T) {
	d := Dims{X: 6, Y: 6, Z: 3}
	payload := make([]byte, d.Count())
	payload[d.Index(1, 1, 1)] = 2
	s := NewSession(SessionConfig{}, nil)
	if err := s.LoadOriginal(d, payload); err != nil {
		t.Fatalf("LoadOriginal: %v", err)
	}

	_ = s.SetBrushRadius(2)
	for i := 0; i < 3; i++ {
		_ = s.BeginStroke(Voxel{X: 2 + i, Y: 2, Z: 0})
		_ = s.ContinueStroke(Voxel{X: 4, Y: 4, Z: 0})
		s.EndStroke()
	}
	if !s.Dirty() {
		t.Fatalf("session should be dirty after strokes")
	}

	if err := s.ResetToOriginal(); err != nil {
		t.Fatalf("ResetToOriginal: %v", err)
	}
	out, _ := s.ExportCurrent()
	if !bytes.Equal(out, payload) {
		t.Fatalf("reset did not restore original bytes")
	}
	if s.Dirty() {
		t.Fatalf("session should be clean after reset")
	}
}

// View-mode purity: toggling the mode never mutates either buffer.
func TestSession_ViewModePurity(t *testing.T) {
	d := Dims{X: 4, Y: 4, Z: 2}
	s := newLoadedSession(t, d)
	_ = s.BeginStroke(Voxel{X: 1, Y: 1, Z: 0})
	s.EndStroke()

	cur, _ := s.ExportCurrent()
	orig := s.ViewBuffer().Bytes() // ViewOriginal is active after load

	for i := 0; i < 5; i++ {
		_ = s.SetViewMode(ViewEdited)
		_ = s.SetViewMode(ViewOriginal)
	}

	cur2, _ := s.ExportCurrent()
	if !bytes.Equal(cur, cur2) {
		t.Fatalf("view-mode toggling mutated the edited buffer")
	}
	if !bytes.Equal(orig, s.ViewBuffer().Bytes()) {
		t.Fatalf("view-mode toggling mutated the original buffer")
	}
}

func TestSession_ViewBufferFollowsMode(t *testing.T) {
	d := Dims{X: 4, Y: 4, Z: 1}
	s := newLoadedSession(t, d)
	_ = s.BeginStroke(Voxel{X: 1, Y: 1, Z: 0})
	s.EndStroke()

	if got := s.ViewBuffer().CountLabel(1); got != 0 {
		t.Fatalf("ORIGINAL view shows edits: %d voxels", got)
	}
	_ = s.SetViewMode(ViewEdited)
	if got := s.ViewBuffer().CountLabel(1); got != 1 {
		t.Fatalf("EDITED view: got %d painted voxels want 1", got)
	}
}

func TestSession_ApplyEditedOverride(t *testing.T) {
	d := Dims{X: 2, Y: 2, Z: 2}
	s := newLoadedSession(t, d)

	edited := make([]byte, d.Count())
	edited[0] = 3
	if err := s.ApplyEditedOverride(edited); err != nil {
		t.Fatalf("ApplyEditedOverride: %v", err)
	}
	out, _ := s.ExportCurrent()
	if out[0] != 3 {
		t.Fatalf("override not applied")
	}
	// Original snapshot untouched.
	if got := s.ViewBuffer().CountLabel(3); got != 0 {
		t.Fatalf("override leaked into original snapshot")
	}

	if err := s.ApplyEditedOverride(make([]byte, 3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("short override: want ErrDimensionMismatch, got %v", err)
	}
}

func TestSession_UndoRestoresPreStrokeState(t *testing.T) {
	d := Dims{X: 6, Y: 6, Z: 2}
	s := newLoadedSession(t, d)

	_ = s.BeginStroke(Voxel{X: 2, Y: 2, Z: 0})
	s.EndStroke()
	afterFirst, _ := s.ExportCurrent()

	_ = s.SelectLabel(2)
	_ = s.SetBrushRadius(1)
	_ = s.BeginStroke(Voxel{X: 4, Y: 4, Z: 0})
	s.EndStroke()

	if !s.Undo() {
		t.Fatalf("undo should succeed")
	}
	got, _ := s.ExportCurrent()
	if !bytes.Equal(got, afterFirst) {
		t.Fatalf("undo did not restore pre-stroke bytes")
	}
	if !s.Undo() {
		t.Fatalf("second undo should succeed")
	}
	if s.Undo() {
		t.Fatalf("undo on empty stack should report false")
	}
}

func TestSession_UndoDepthBounded(t *testing.T) {
	d := Dims{X: 8, Y: 8, Z: 1}
	s := NewSession(SessionConfig{UndoDepth: 2}, nil)
	if err := s.LoadOriginal(d, make([]byte, d.Count())); err != nil {
		t.Fatalf("LoadOriginal: %v", err)
	}
	for i := 0; i < 5; i++ {
		_ = s.BeginStroke(Voxel{X: i, Y: i, Z: 0})
		s.EndStroke()
	}
	if got := s.UndoDepth(); got != 2 {
		t.Fatalf("undo depth: got %d want 2", got)
	}
}

func TestSession_CommitStrokeAndFocus(t *testing.T) {
	d := Dims{X: 10, Y: 20, Z: 30}
	s := newLoadedSession(t, d)
	if _, ok := s.Focus(); ok {
		t.Fatalf("focus before any stroke should be absent")
	}

	_ = s.BeginStroke(Voxel{X: 3, Y: 7, Z: 15})
	s.EndStroke()

	f, ok := s.Focus()
	if !ok {
		t.Fatalf("focus missing after stroke")
	}
	if f.Axial != 15 || f.Coronal != 7 || f.Sagittal != 3 {
		t.Fatalf("focus slices: got axial=%d coronal=%d sagittal=%d", f.Axial, f.Coronal, f.Sagittal)
	}
	if f.FracZ != NormalizedFromSliceIndex(15, 30) {
		t.Fatalf("focus fracZ: got %v", f.FracZ)
	}

	// ResetToOriginal leaves the focus alone.
	_ = s.ResetToOriginal()
	if _, ok := s.Focus(); !ok {
		t.Fatalf("reset must not clear the last-edited voxel")
	}
}

func TestSession_EndStrokeRecordsFocusWithoutChanges(t *testing.T) {
	d := Dims{X: 4, Y: 4, Z: 4}
	s := newLoadedSession(t, d)
	if err := s.SelectTool(ToolErase); err != nil {
		t.Fatalf("SelectTool: %v", err)
	}

	// Erasing over background changes nothing, but the completed stroke
	// must still re-center the comparison views.
	if err := s.BeginStroke(Voxel{X: 2, Y: 3, Z: 1}); err != nil {
		t.Fatalf("BeginStroke: %v", err)
	}
	if got := s.EndStroke(); got != 0 {
		t.Fatalf("changed voxels: got %d want 0", got)
	}

	f, ok := s.Focus()
	if !ok {
		t.Fatalf("completed stroke did not record the last-edited voxel")
	}
	if f.Voxel != (Voxel{X: 2, Y: 3, Z: 1}) {
		t.Fatalf("focus voxel: got %+v", f.Voxel)
	}
	if s.Dirty() {
		t.Fatalf("no-op stroke must not mark the session dirty")
	}
	if got := s.UndoDepth(); got != 0 {
		t.Fatalf("no-op stroke must not be undoable: depth %d", got)
	}
}

func TestSession_CancelStrokeKeepsPartialPaint(t *testing.T) {
	d := Dims{X: 6, Y: 6, Z: 1}
	s := newLoadedSession(t, d)
	_ = s.BeginStroke(Voxel{X: 1, Y: 1, Z: 0})
	s.CancelStroke()

	out, _ := s.ExportCurrent()
	if out[d.Index(1, 1, 0)] != 1 {
		t.Fatalf("partial stroke must persist after cancel")
	}
	if _, ok := s.LastEditedVoxel(); ok {
		t.Fatalf("cancel must not commit a last-edited voxel")
	}
	if got := s.UndoDepth(); got != 1 {
		t.Fatalf("cancelled stroke should still be undoable: depth %d", got)
	}
}

func TestSession_RendererNotified(t *testing.T) {
	r := &countingRenderer{}
	s := NewSession(SessionConfig{}, r)
	d := Dims{X: 4, Y: 4, Z: 1}
	if err := s.LoadOriginal(d, make([]byte, d.Count())); err != nil {
		t.Fatalf("LoadOriginal: %v", err)
	}
	n := r.refreshes
	_ = s.BeginStroke(Voxel{X: 1, Y: 1, Z: 0})
	if r.refreshes != n+1 {
		t.Fatalf("renderer not refreshed on stroke begin")
	}
	_ = s.SetViewMode(ViewEdited)
	if r.refreshes != n+2 {
		t.Fatalf("renderer not refreshed on view-mode change")
	}
}

func TestSession_OperationsBeforeLoadFail(t *testing.T) {
	s := NewSession(SessionConfig{}, nil)
	if err := s.BeginStroke(Voxel{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("BeginStroke before load: want ErrInvalidArgument, got %v", err)
	}
	if _, err := s.ExportCurrent(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ExportCurrent before load: want ErrInvalidArgument, got %v", err)
	}
}
