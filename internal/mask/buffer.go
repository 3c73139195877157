package mask

import "fmt"

// Buffer owns the flat label array for one volume: one byte per voxel,
// length = X*Y*Z, x fastest-varying. Dimensions are immutable after
// construction and there is no implicit resizing.
type Buffer struct {
	dims Dims
	data []uint8
}

// NewBuffer returns a zero-filled buffer for the given dimensions.
func NewBuffer(dims Dims) (*Buffer, error) {
	if !dims.Valid() {
		return nil, fmt.Errorf("%w: non-positive dims %s", ErrInvalidArgument, dims)
	}
	return &Buffer{dims: dims, data: make([]uint8, dims.Count())}, nil
}

// FromBytes builds a buffer from an existing voxel payload. The payload is
// copied; the caller keeps ownership of b.
func FromBytes(dims Dims, b []byte) (*Buffer, error) {
	if !dims.Valid() {
		return nil, fmt.Errorf("%w: non-positive dims %s", ErrInvalidArgument, dims)
	}
	if len(b) != dims.Count() {
		return nil, fmt.Errorf("%w: got %d bytes, dims %s need %d", ErrDimensionMismatch, len(b), dims, dims.Count())
	}
	data := make([]uint8, len(b))
	copy(data, b)
	return &Buffer{dims: dims, data: data}, nil
}

func (b *Buffer) Dims() Dims { return b.dims }

// Get returns the label at (x,y,z). Coordinates outside the volume fail with
// ErrOutOfBounds; footprint callers pre-clip, so this is a misuse guard.
func (b *Buffer) Get(x, y, z int) (Label, error) {
	if !b.dims.Contains(x, y, z) {
		return 0, fmt.Errorf("%w: (%d,%d,%d) in %s", ErrOutOfBounds, x, y, z, b.dims)
	}
	return Label(b.data[b.dims.Index(x, y, z)]), nil
}

func (b *Buffer) Set(x, y, z int, l Label) error {
	if !b.dims.Contains(x, y, z) {
		return fmt.Errorf("%w: (%d,%d,%d) in %s", ErrOutOfBounds, x, y, z, b.dims)
	}
	b.data[b.dims.Index(x, y, z)] = uint8(l)
	return nil
}

// at and setAt skip bounds checks; callers must have clipped already.
func (b *Buffer) at(i int) Label     { return Label(b.data[i]) }
func (b *Buffer) setAt(i int, l Label) { b.data[i] = uint8(l) }

// Clone returns a deep copy, used for the original snapshot and for
// materializing edited output.
func (b *Buffer) Clone() *Buffer {
	data := make([]uint8, len(b.data))
	copy(data, b.data)
	return &Buffer{dims: b.dims, data: data}
}

// Bytes returns a defensive copy of the voxel payload.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// CopyFrom overwrites this buffer's voxels with src's. Dimensions must match.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if src.dims != b.dims {
		return fmt.Errorf("%w: src %s dst %s", ErrDimensionMismatch, src.dims, b.dims)
	}
	copy(b.data, src.data)
	return nil
}

// SetBytes overwrites the voxel payload in place after validating length.
func (b *Buffer) SetBytes(p []byte) error {
	if len(p) != len(b.data) {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrDimensionMismatch, len(p), len(b.data))
	}
	copy(b.data, p)
	return nil
}

// CountLabel counts voxels carrying the given label.
func (b *Buffer) CountLabel(l Label) int {
	n := 0
	v := uint8(l)
	for _, x := range b.data {
		if x == v {
			n++
		}
	}
	return n
}

// Equal reports whether two buffers hold identical dimensions and voxels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.dims != o.dims {
		return false
	}
	for i := range b.data {
		if b.data[i] != o.data[i] {
			return false
		}
	}
	return true
}
