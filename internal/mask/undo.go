package mask

// undoStack keeps per-stroke deltas, bounded to max strokes. The oldest
// stroke is discarded when the bound is exceeded.
type undoStack struct {
	max     int
	strokes [][]delta
}

func (u *undoStack) push(d []delta) {
	if len(d) == 0 {
		return
	}
	u.strokes = append(u.strokes, d)
	if u.max > 0 && len(u.strokes) > u.max {
		u.strokes = u.strokes[1:]
	}
}

// pop removes and returns the most recent stroke's deltas, or nil.
func (u *undoStack) pop() []delta {
	n := len(u.strokes)
	if n == 0 {
		return nil
	}
	d := u.strokes[n-1]
	u.strokes = u.strokes[:n-1]
	return d
}

func (u *undoStack) depth() int { return len(u.strokes) }

func (u *undoStack) reset() { u.strokes = nil }
