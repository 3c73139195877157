package mask

import "math"

// Footprint returns the voxels a single brush application touches: an
// inclusive circular disc of the given radius in the orientation's plane,
// swept across every slice along the penetration axis. Radius 0 is a single
// in-plane point. In-plane candidates outside the volume are discarded;
// iteration order is fixed (da outer, db inner, then the penetration sweep)
// so traces are reproducible.
func Footprint(center Voxel, radius int, o Orientation, d Dims) []Voxel {
	if radius < 0 {
		return nil
	}
	ca, cb := inPlane(center, o)
	dimA, dimB, dimP := planeDims(d, o)

	r2 := radius * radius
	out := make([]Voxel, 0, (2*radius+1)*(2*radius+1)*dimP)
	for da := -radius; da <= radius; da++ {
		for db := -radius; db <= radius; db++ {
			if da*da+db*db > r2 {
				continue
			}
			a := ca + da
			b := cb + db
			if a < 0 || a >= dimA || b < 0 || b >= dimB {
				continue
			}
			for p := 0; p < dimP; p++ {
				out = append(out, fromPlane(o, a, b, p))
			}
		}
	}
	return out
}

// Interpolate connects two pointer samples so fast mouse motion leaves no
// gaps. Only the in-plane coordinates matter; the returned voxels carry
// curr's penetration-axis coordinate (Footprint sweeps that axis anyway).
// For in-plane distance dist it yields ceil(dist)+1 samples, consecutive
// ones differing by at most 1 per in-plane coordinate.
func Interpolate(prev, curr Voxel, o Orientation) []Voxel {
	pa, pb := inPlane(prev, o)
	ca, cb := inPlane(curr, o)

	dist := math.Hypot(float64(ca-pa), float64(cb-pb))
	steps := int(math.Ceil(dist))
	if steps < 1 {
		steps = 1
	}

	_, _, currP := planeCoord(curr, o)
	out := make([]Voxel, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		a := int(math.Round(float64(pa) + t*float64(ca-pa)))
		b := int(math.Round(float64(pb) + t*float64(cb-pb)))
		out = append(out, fromPlane(o, a, b, currP))
	}
	return out
}

// planeCoord splits v into in-plane (a,b) and penetration-axis p.
func planeCoord(v Voxel, o Orientation) (a, b, p int) {
	switch o {
	case Coronal:
		return v.X, v.Z, v.Y
	case Sagittal:
		return v.Y, v.Z, v.X
	default:
		return v.X, v.Y, v.Z
	}
}
