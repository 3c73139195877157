package mask

import (
	"fmt"
	"math"
	"strings"
)

// Orientation is one of the three canonical anatomical viewing planes.
type Orientation int

const (
	Axial Orientation = iota
	Coronal
	Sagittal
)

func (o Orientation) String() string {
	switch o {
	case Axial:
		return "AXIAL"
	case Coronal:
		return "CORONAL"
	case Sagittal:
		return "SAGITTAL"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AXIAL":
		return Axial, nil
	case "CORONAL":
		return Coronal, nil
	case "SAGITTAL":
		return Sagittal, nil
	}
	return 0, fmt.Errorf("%w: orientation %q", ErrInvalidArgument, s)
}

// Axis names a volume axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	default:
		return "Z"
	}
}

// InPlaneAxes returns the two axes swept by the brush disc. The pairing is
// fixed: axial (x,y), coronal (x,z), sagittal (y,z).
func InPlaneAxes(o Orientation) (Axis, Axis) {
	switch o {
	case Coronal:
		return AxisX, AxisZ
	case Sagittal:
		return AxisY, AxisZ
	default:
		return AxisX, AxisY
	}
}

// PenetrationAxis returns the axis along which a brush application writes
// every slice: z for axial, y for coronal, x for sagittal.
func PenetrationAxis(o Orientation) Axis {
	switch o {
	case Coronal:
		return AxisY
	case Sagittal:
		return AxisX
	default:
		return AxisZ
	}
}

// SliceCount is the volume size along the penetration axis.
func SliceCount(d Dims, o Orientation) int {
	switch PenetrationAxis(o) {
	case AxisX:
		return d.X
	case AxisY:
		return d.Y
	default:
		return d.Z
	}
}

// SliceIndexFromNormalized converts a 0..1 crosshair fraction to a slice
// index, rounding to nearest.
func SliceIndexFromNormalized(frac float64, sliceCount int) int {
	if sliceCount <= 1 {
		return 0
	}
	i := int(math.Round(frac * float64(sliceCount-1)))
	if i < 0 {
		i = 0
	}
	if i > sliceCount-1 {
		i = sliceCount - 1
	}
	return i
}

// NormalizedFromSliceIndex is the inverse. A single-slice volume maps to 0.5
// rather than dividing by zero.
func NormalizedFromSliceIndex(index, sliceCount int) float64 {
	if sliceCount <= 1 {
		return 0.5
	}
	return float64(index) / float64(sliceCount-1)
}

// inPlane extracts the two in-plane coordinates of v per the orientation.
func inPlane(v Voxel, o Orientation) (a, b int) {
	switch o {
	case Coronal:
		return v.X, v.Z
	case Sagittal:
		return v.Y, v.Z
	default:
		return v.X, v.Y
	}
}

// fromPlane builds a voxel from in-plane coordinates (a,b) and a position p
// along the penetration axis.
func fromPlane(o Orientation, a, b, p int) Voxel {
	switch o {
	case Coronal:
		return Voxel{X: a, Y: p, Z: b}
	case Sagittal:
		return Voxel{X: p, Y: a, Z: b}
	default:
		return Voxel{X: a, Y: b, Z: p}
	}
}

// planeDims returns the in-plane extents and the penetration extent.
func planeDims(d Dims, o Orientation) (dimA, dimB, dimP int) {
	switch o {
	case Coronal:
		return d.X, d.Z, d.Y
	case Sagittal:
		return d.Y, d.Z, d.X
	default:
		return d.X, d.Y, d.Z
	}
}
