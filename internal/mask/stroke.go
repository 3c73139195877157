package mask

// StrokeController tracks one in-progress stroke: pointer-down to
// pointer-up. Tool, label, radius and orientation are captured at stroke
// start; changing them mid-stroke is not supported. The controller records a
// (flat-index, previous-value) delta for every voxel it actually changes, so
// a completed stroke can be undone without renderer help.
type StrokeController struct {
	buf    *Buffer
	tool   Tool
	label  Label
	radius int
	orient Orientation

	prev    *Voxel
	active  bool
	diff    []delta
	onApply func()
}

// delta is one voxel's pre-stroke value.
type delta struct {
	idx  int
	prev uint8
}

func newStrokeController(buf *Buffer, tool Tool, label Label, radius int, orient Orientation, onApply func()) *StrokeController {
	return &StrokeController{
		buf:     buf,
		tool:    tool,
		label:   label,
		radius:  radius,
		orient:  orient,
		onApply: onApply,
	}
}

// Begin starts the stroke and immediately applies one footprint, so a click
// with no movement still leaves a dot.
func (s *StrokeController) Begin(v Voxel) {
	s.prev = nil
	s.active = true
	s.apply(v)
	p := v
	s.prev = &p
}

// Continue extends the stroke to v, interpolating from the previous sample
// so fast pointer motion leaves no gaps. With no previous sample it behaves
// like Begin.
func (s *StrokeController) Continue(v Voxel) {
	if s.prev == nil {
		s.Begin(v)
		return
	}
	for _, p := range Interpolate(*s.prev, v, s.orient) {
		s.apply(p)
	}
	p := v
	s.prev = &p
}

// End finishes the stroke with no paint side effect and returns the recorded
// deltas. Partially applied samples persist; nothing is rolled back.
func (s *StrokeController) End() []delta {
	s.prev = nil
	s.active = false
	d := s.diff
	s.diff = nil
	return d
}

func (s *StrokeController) Active() bool { return s.active }

// LastSample is the most recent pointer sample applied, if any.
func (s *StrokeController) LastSample() (Voxel, bool) {
	if s.prev == nil {
		return Voxel{}, false
	}
	return *s.prev, true
}

// Changed is the number of voxels modified so far in this stroke.
func (s *StrokeController) Changed() int { return len(s.diff) }

func (s *StrokeController) apply(center Voxel) {
	for _, v := range Footprint(center, s.radius, s.orient, s.buf.dims) {
		i := s.buf.dims.Index(v.X, v.Y, v.Z)
		old := s.buf.at(i)
		switch s.tool {
		case ToolPaint:
			if old != s.label {
				s.diff = append(s.diff, delta{idx: i, prev: uint8(old)})
				s.buf.setAt(i, s.label)
			}
		case ToolErase:
			// Label-scoped: only voxels matching the selected label revert.
			if old == s.label {
				s.diff = append(s.diff, delta{idx: i, prev: uint8(old)})
				s.buf.setAt(i, Background)
			}
		}
	}
	if s.onApply != nil {
		s.onApply()
	}
}
