package mask

import "testing"

func TestAdjustedColormap_NeutralSettingsPassThrough(t *testing.T) {
	cat := DefaultCatalog()
	lut := AdjustedColormap(cat, 50, 50)
	if len(lut) != 5 {
		t.Fatalf("lut length: got %d want 5", len(lut))
	}
	if lut[0] != (RGB{}) {
		t.Fatalf("background must stay black: got %+v", lut[0])
	}
	for _, l := range cat {
		if lut[l.ID] != l.Color {
			t.Fatalf("label %d: neutral settings changed color %+v -> %+v", l.ID, l.Color, lut[l.ID])
		}
	}
}

func TestAdjustedColormap_BrightnessClamps(t *testing.T) {
	cat := Catalog{{ID: 1, Name: "Liver", Color: RGB{200, 10, 10}}}
	bright := AdjustedColormap(cat, 100, 50)[1]
	if bright.R != 255 {
		t.Fatalf("full brightness should clamp red to 255: got %d", bright.R)
	}
	dark := AdjustedColormap(cat, 0, 50)[1]
	if dark.R != 72 || dark.G != 0 {
		t.Fatalf("zero brightness: got %+v want {72 0 0}", dark)
	}
}

func TestAdjustedColormap_ContrastAboutMidpoint(t *testing.T) {
	cat := Catalog{{ID: 1, Name: "X", Color: RGB{128, 0, 255}}}
	// Zero contrast collapses every channel to the midpoint.
	flat := AdjustedColormap(cat, 50, 0)[1]
	if flat != (RGB{128, 128, 128}) {
		t.Fatalf("zero contrast: got %+v want {128 128 128}", flat)
	}
	// Doubled contrast pushes extremes outward and leaves the midpoint.
	hard := AdjustedColormap(cat, 50, 100)[1]
	if hard.R != 128 || hard.G != 0 || hard.B != 255 {
		t.Fatalf("doubled contrast: got %+v", hard)
	}
}
