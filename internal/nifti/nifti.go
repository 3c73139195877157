// Package nifti handles the narrow NIfTI-1 contract the editor needs:
// reading dimensions, voxel spacing and the voxel payload from a volume
// file, and splicing an edited label payload back into the source file while
// preserving its header bytes. The payload offset comes from the file's own
// vox_offset field rather than an assumed 352, so header-extension variants
// survive the round trip. Gzip-compressed sources are transparent.
package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"

	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
)

const headerSize = 348

// NIfTI-1 datatype codes.
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
)

var (
	ErrNotNIfTI    = errors.New("nifti: not a NIfTI-1 file")
	ErrUnsupported = errors.New("nifti: unsupported datatype")
	ErrBadPayload  = errors.New("nifti: payload size mismatch")
)

// Volume is a decoded single-file NIfTI-1 volume.
type Volume struct {
	Dims      mask.Dims
	Spacing   [3]float64 // voxel spacing in mm
	Datatype  int16
	Bitpix    int16
	VoxOffset int

	order      binary.ByteOrder
	compressed bool
	raw        []byte // full decompressed file
}

// Decode parses a NIfTI-1 file, decompressing first when the gzip magic is
// present.
func Decode(data []byte) (*Volume, error) {
	compressed := false
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("nifti: gunzip: %w", err)
		}
		raw, err := io.ReadAll(r)
		if cerr := r.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("nifti: gunzip: %w", err)
		}
		data = raw
		compressed = true
	}

	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotNIfTI, len(data))
	}

	order, err := detectOrder(data)
	if err != nil {
		return nil, err
	}

	if magic := data[344:348]; !bytes.Equal(magic, []byte("n+1\x00")) && !bytes.Equal(magic, []byte("ni1\x00")) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrNotNIfTI, magic)
	}

	var dim [8]int16
	for i := range dim {
		dim[i] = int16(order.Uint16(data[40+2*i:]))
	}
	if dim[0] < 3 {
		return nil, fmt.Errorf("%w: %d-dimensional volume", ErrNotNIfTI, dim[0])
	}
	dims := mask.Dims{X: int(dim[1]), Y: int(dim[2]), Z: int(dim[3])}
	if !dims.Valid() {
		return nil, fmt.Errorf("%w: dims %s", ErrNotNIfTI, dims)
	}

	datatype := int16(order.Uint16(data[70:]))
	bitpix := int16(order.Uint16(data[72:]))
	var wantBits int16
	switch datatype {
	case DTUint8:
		wantBits = 8
	case DTInt16:
		wantBits = 16
	case DTInt32, DTFloat32:
		wantBits = 32
	default:
		return nil, fmt.Errorf("%w: datatype %d", ErrUnsupported, datatype)
	}
	// A corrupt bitpix would make every later payload-size computation lie.
	if bitpix != wantBits {
		return nil, fmt.Errorf("%w: bitpix %d for datatype %d", ErrUnsupported, bitpix, datatype)
	}

	var pixdim [8]float32
	for i := range pixdim {
		pixdim[i] = math.Float32frombits(order.Uint32(data[76+4*i:]))
	}

	voxOffset := int(math.Float32frombits(order.Uint32(data[108:])))
	if voxOffset < headerSize {
		voxOffset = 352 // vox_offset of 0 is seen in the wild; use the default
	}

	need := voxOffset + dims.Count()*int(bitpix)/8
	if len(data) < need {
		return nil, fmt.Errorf("%w: file %d bytes, need %d", ErrBadPayload, len(data), need)
	}

	return &Volume{
		Dims:       dims,
		Spacing:    [3]float64{float64(pixdim[1]), float64(pixdim[2]), float64(pixdim[3])},
		Datatype:   datatype,
		Bitpix:     bitpix,
		VoxOffset:  voxOffset,
		order:      order,
		compressed: compressed,
		raw:        data,
	}, nil
}

func detectOrder(data []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(data[0:]) == headerSize {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(data[0:]) == headerSize {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: sizeof_hdr != %d", ErrNotNIfTI, headerSize)
}

// Payload returns the raw voxel bytes of the volume (no copy).
func (v *Volume) Payload() []byte {
	n := v.Dims.Count() * int(v.Bitpix) / 8
	return v.raw[v.VoxOffset : v.VoxOffset+n]
}

// Labels returns a copy of the voxel payload of a uint8 mask volume.
func (v *Volume) Labels() ([]byte, error) {
	if v.Datatype != DTUint8 {
		return nil, fmt.Errorf("%w: mask must be uint8, got datatype %d", ErrUnsupported, v.Datatype)
	}
	p := v.Payload()
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// Values decodes the payload to float64 per the stored datatype, voxel
// order unchanged. Used to read HU values out of a CT volume.
func (v *Volume) Values() ([]float64, error) {
	p := v.Payload()
	n := v.Dims.Count()
	out := make([]float64, n)
	switch v.Datatype {
	case DTUint8:
		for i := 0; i < n; i++ {
			out[i] = float64(p[i])
		}
	case DTInt16:
		for i := 0; i < n; i++ {
			out[i] = float64(int16(v.order.Uint16(p[2*i:])))
		}
	case DTInt32:
		for i := 0; i < n; i++ {
			out[i] = float64(int32(v.order.Uint32(p[4*i:])))
		}
	case DTFloat32:
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(v.order.Uint32(p[4*i:])))
		}
	default:
		return nil, fmt.Errorf("%w: datatype %d", ErrUnsupported, v.Datatype)
	}
	return out, nil
}

// ReplacePayload splices an edited label payload into the source mask file,
// keeping every header and extension byte as is. The result is gzipped when
// the source was. src must be a uint8 volume whose voxel count matches
// len(labels).
func ReplacePayload(src []byte, labels []byte) ([]byte, error) {
	v, err := Decode(src)
	if err != nil {
		return nil, err
	}
	if v.Datatype != DTUint8 {
		return nil, fmt.Errorf("%w: mask must be uint8, got datatype %d", ErrUnsupported, v.Datatype)
	}
	if len(labels) != v.Dims.Count() {
		return nil, fmt.Errorf("%w: %d labels for dims %s", ErrBadPayload, len(labels), v.Dims)
	}

	out := make([]byte, len(v.raw))
	copy(out, v.raw)
	copy(out[v.VoxOffset:], labels)

	if !v.compressed {
		return out, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(out); err != nil {
		return nil, fmt.Errorf("nifti: gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("nifti: gzip: %w", err)
	}
	return buf.Bytes(), nil
}
