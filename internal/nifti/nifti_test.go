package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
)

// buildFile assembles a minimal single-file NIfTI-1 volume.
func buildFile(t *testing.T, dims mask.Dims, datatype, bitpix int16, voxOffset int, payload []byte) []byte {
	t.Helper()
	f := make([]byte, voxOffset+len(payload))
	le := binary.LittleEndian

	le.PutUint32(f[0:], 348)
	le.PutUint16(f[40:], 3) // dim[0]
	le.PutUint16(f[42:], uint16(dims.X))
	le.PutUint16(f[44:], uint16(dims.Y))
	le.PutUint16(f[46:], uint16(dims.Z))
	le.PutUint16(f[70:], uint16(datatype))
	le.PutUint16(f[72:], uint16(bitpix))
	le.PutUint32(f[80:], math.Float32bits(1.5)) // pixdim[1]
	le.PutUint32(f[84:], math.Float32bits(1.5)) // pixdim[2]
	le.PutUint32(f[88:], math.Float32bits(2.0)) // pixdim[3]
	le.PutUint32(f[108:], math.Float32bits(float32(voxOffset)))
	copy(f[344:], "n+1\x00")
	copy(f[voxOffset:], payload)
	return f
}

func TestDecode_MaskVolume(t *testing.T) {
	dims := mask.Dims{X: 3, Y: 2, Z: 2}
	payload := []byte{0, 1, 1, 0, 2, 0, 0, 0, 1, 0, 0, 4}
	f := buildFile(t, dims, DTUint8, 8, 352, payload)

	v, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Dims != dims {
		t.Fatalf("dims: got %s want %s", v.Dims, dims)
	}
	if v.Spacing != [3]float64{1.5, 1.5, 2.0} {
		t.Fatalf("spacing: got %v", v.Spacing)
	}
	labels, err := v.Labels()
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if !bytes.Equal(labels, payload) {
		t.Fatalf("labels differ from payload")
	}
}

func TestDecode_RespectsVoxOffsetFromHeader(t *testing.T) {
	// A header extension moves vox_offset past the usual 352.
	dims := mask.Dims{X: 2, Y: 2, Z: 1}
	payload := []byte{1, 2, 3, 4}
	f := buildFile(t, dims, DTUint8, 8, 368, payload)

	v, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.VoxOffset != 368 {
		t.Fatalf("vox offset: got %d want 368", v.VoxOffset)
	}
	if !bytes.Equal(v.Payload(), payload) {
		t.Fatalf("payload misread with extended header")
	}
}

func TestDecode_GzipTransparent(t *testing.T) {
	dims := mask.Dims{X: 2, Y: 2, Z: 2}
	payload := make([]byte, dims.Count())
	payload[3] = 2
	f := buildFile(t, dims, DTUint8, 8, 352, payload)
	gz := gzipBytes(t, f)

	v, err := Decode(gz)
	if err != nil {
		t.Fatalf("Decode gzipped: %v", err)
	}
	if !bytes.Equal(v.Payload(), payload) {
		t.Fatalf("gzipped payload differs")
	}
}

func TestDecode_Int16CTValues(t *testing.T) {
	dims := mask.Dims{X: 2, Y: 1, Z: 1}
	payload := make([]byte, 4)
	air, soft := int16(-1000), int16(60)
	binary.LittleEndian.PutUint16(payload[0:], uint16(air))
	binary.LittleEndian.PutUint16(payload[2:], uint16(soft))
	f := buildFile(t, dims, DTInt16, 16, 352, payload)

	v, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	vals, err := v.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if vals[0] != -1000 || vals[1] != 60 {
		t.Fatalf("HU values: got %v", vals)
	}
	if _, err := v.Labels(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Labels on int16 volume: want ErrUnsupported, got %v", err)
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not a volume")); !errors.Is(err, ErrNotNIfTI) {
		t.Fatalf("want ErrNotNIfTI, got %v", err)
	}
}

func TestDecode_RejectsBitpixMismatch(t *testing.T) {
	dims := mask.Dims{X: 2, Y: 2, Z: 1}
	payload := []byte{0, 0, 0, 0}

	// bitpix 0xFFFF reads as -1 and would shrink the payload-size check
	// below the file length; Decode must refuse the header instead of
	// letting Payload slice with a negative end.
	f := buildFile(t, dims, DTUint8, 8, 352, payload)
	binary.LittleEndian.PutUint16(f[72:], 0xFFFF)
	if _, err := Decode(f); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("negative bitpix: want ErrUnsupported, got %v", err)
	}

	// A merely wrong (but positive) bitpix is rejected too.
	f = buildFile(t, dims, DTUint8, 16, 352, payload)
	if _, err := Decode(f); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("bitpix 16 for uint8: want ErrUnsupported, got %v", err)
	}
}

func TestReplacePayload_PreservesHeaderBytes(t *testing.T) {
	dims := mask.Dims{X: 2, Y: 2, Z: 1}
	f := buildFile(t, dims, DTUint8, 8, 368, []byte{0, 0, 0, 0})
	f[360] = 0xAB // extension byte that must survive

	edited := []byte{1, 1, 0, 2}
	out, err := ReplacePayload(f, edited)
	if err != nil {
		t.Fatalf("ReplacePayload: %v", err)
	}
	if !bytes.Equal(out[:368], f[:368]) {
		t.Fatalf("header bytes changed")
	}
	if !bytes.Equal(out[368:], edited) {
		t.Fatalf("payload not substituted")
	}
}

func TestReplacePayload_RoundTripsGzip(t *testing.T) {
	dims := mask.Dims{X: 2, Y: 2, Z: 1}
	f := buildFile(t, dims, DTUint8, 8, 352, []byte{0, 0, 0, 0})
	gz := gzipBytes(t, f)

	edited := []byte{3, 0, 0, 3}
	out, err := ReplacePayload(gz, edited)
	if err != nil {
		t.Fatalf("ReplacePayload: %v", err)
	}
	// Output must itself be a readable gzipped volume with the new labels.
	v, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode output: %v", err)
	}
	if !bytes.Equal(v.Payload(), edited) {
		t.Fatalf("edited payload lost in gzip round trip")
	}
}

func TestReplacePayload_WrongLength(t *testing.T) {
	dims := mask.Dims{X: 2, Y: 2, Z: 1}
	f := buildFile(t, dims, DTUint8, 8, 352, []byte{0, 0, 0, 0})
	if _, err := ReplacePayload(f, []byte{1}); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("want ErrBadPayload, got %v", err)
	}
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}
