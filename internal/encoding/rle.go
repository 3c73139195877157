package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a label payload as base64(varint pairs). The pairs are
// (label, run_len) repeated. Organ masks are mostly background with long
// runs, so this keeps full-mask pushes small on the wire.
func EncodeRLE(labels []byte) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(labels) {
		l := labels[i]
		run := 1
		for j := i + 1; j < len(labels) && labels[j] == l; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(l))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []byte
	for i := 0; i < len(raw); {
		l, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if l > 0xFF {
			return nil, fmt.Errorf("label too large: %d", l)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, byte(l))
		}
	}
	return out, nil
}
