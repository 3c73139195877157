package mask

import "fmt"

// Dims are the fixed dimensions of a loaded volume, in voxels.
type Dims struct {
	X, Y, Z int
}

func (d Dims) Valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// Count is the number of voxels (and the required buffer length).
func (d Dims) Count() int {
	return d.X * d.Y * d.Z
}

// Contains reports whether (x,y,z) is inside the volume.
func (d Dims) Contains(x, y, z int) bool {
	return x >= 0 && x < d.X && y >= 0 && y < d.Y && z >= 0 && z < d.Z
}

// Index maps a voxel coordinate to its flat offset, x fastest-varying.
func (d Dims) Index(x, y, z int) int {
	return x + y*d.X + z*d.X*d.Y
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Voxel is a single addressable position in a volume.
type Voxel struct {
	X, Y, Z int
}

func (v Voxel) In(d Dims) bool {
	return d.Contains(v.X, v.Y, v.Z)
}
