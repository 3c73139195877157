package mask

import "testing"

func TestOrientation_AxisMapping(t *testing.T) {
	cases := []struct {
		o        Orientation
		a, b     Axis
		pen      Axis
	}{
		{Axial, AxisX, AxisY, AxisZ},
		{Coronal, AxisX, AxisZ, AxisY},
		{Sagittal, AxisY, AxisZ, AxisX},
	}
	for _, c := range cases {
		a, b := InPlaneAxes(c.o)
		if a != c.a || b != c.b {
			t.Fatalf("%s in-plane axes: got (%s,%s) want (%s,%s)", c.o, a, b, c.a, c.b)
		}
		if p := PenetrationAxis(c.o); p != c.pen {
			t.Fatalf("%s penetration axis: got %s want %s", c.o, p, c.pen)
		}
	}
}

func TestSliceCount(t *testing.T) {
	d := Dims{X: 10, Y: 20, Z: 30}
	if got := SliceCount(d, Axial); got != 30 {
		t.Fatalf("axial slice count: got %d want 30", got)
	}
	if got := SliceCount(d, Coronal); got != 20 {
		t.Fatalf("coronal slice count: got %d want 20", got)
	}
	if got := SliceCount(d, Sagittal); got != 10 {
		t.Fatalf("sagittal slice count: got %d want 10", got)
	}
}

func TestSliceIndexNormalizedRoundTrip(t *testing.T) {
	const n = 97
	for i := 0; i < n; i++ {
		frac := NormalizedFromSliceIndex(i, n)
		if got := SliceIndexFromNormalized(frac, n); got != i {
			t.Fatalf("round trip slice %d: got %d", i, got)
		}
	}
}

func TestSliceIndexNormalized_SingleSlice(t *testing.T) {
	if got := NormalizedFromSliceIndex(0, 1); got != 0.5 {
		t.Fatalf("single-slice fraction: got %v want 0.5", got)
	}
	if got := SliceIndexFromNormalized(0.5, 1); got != 0 {
		t.Fatalf("single-slice index: got %d want 0", got)
	}
}

func TestParseOrientation(t *testing.T) {
	for s, want := range map[string]Orientation{"axial": Axial, "CORONAL": Coronal, " sagittal ": Sagittal} {
		got, err := ParseOrientation(s)
		if err != nil {
			t.Fatalf("ParseOrientation(%q): %v", s, err)
		}
		if got != want {
			t.Fatalf("ParseOrientation(%q): got %s want %s", s, got, want)
		}
	}
	if _, err := ParseOrientation("3d"); err == nil {
		t.Fatalf("ParseOrientation(3d): want error")
	}
}
