package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]byte, 0, 300)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 200; i++ {
		in = append(in, 0)
	}
	in = append(in, 4, 4, 4, 4)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_Empty(t *testing.T) {
	out, err := DecodeRLE(EncodeRLE(nil))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("empty round trip: got %d bytes", len(out))
	}
}

func TestRLE_BadInput(t *testing.T) {
	if _, err := DecodeRLE("!!!not base64!!!"); err == nil {
		t.Fatalf("want error for invalid base64")
	}
}
