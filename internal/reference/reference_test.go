package reference

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTable(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ref.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

const sample = `
liver_volume_ml: {p3: 1000, p10: 1200, p50: 1350, p90: 1500, p97: 1800}
spleen_volume_ml: {p3: 80, p10: 120, p50: 175, p90: 250, p97: 350}
liver_spleen_ratio: {p3: 5, p10: 7, p50: 9, p90: 11, p97: 15}
`

func TestLoad(t *testing.T) {
	tbl, err := Load(writeTable(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.LiverVolumeML.P50 != 1350 {
		t.Fatalf("liver p50: got %v want 1350", tbl.LiverVolumeML.P50)
	}
	if tbl.SpleenVolumeML.P97 != 350 {
		t.Fatalf("spleen p97: got %v want 350", tbl.SpleenVolumeML.P97)
	}
}

func TestLoad_RejectsNonIncreasingBand(t *testing.T) {
	bad := `
liver_volume_ml: {p3: 1000, p10: 900, p50: 1350, p90: 1500, p97: 1800}
spleen_volume_ml: {p3: 80, p10: 120, p50: 175, p90: 250, p97: 350}
liver_spleen_ratio: {p3: 5, p10: 7, p50: 9, p90: 11, p97: 15}
`
	if _, err := Load(writeTable(t, bad)); err == nil {
		t.Fatalf("want error for non-increasing percentiles")
	}
}

func TestBand_Grade(t *testing.T) {
	b := Band{P3: 80, P10: 120, P50: 175, P90: 250, P97: 350}
	cases := []struct {
		v    float64
		want Grade
	}{
		{50, GradeLow},
		{80, GradeNormal},
		{175, GradeNormal},
		{350, GradeNormal},
		{400, GradeHigh},
	}
	for _, c := range cases {
		if got := b.Grade(c.v); got != c.want {
			t.Fatalf("Grade(%v): got %s want %s", c.v, got, c.want)
		}
	}
}

func TestBand_Percentile(t *testing.T) {
	b := Band{P3: 1000, P10: 1200, P50: 1350, P90: 1500, P97: 1800}
	if p := b.Percentile(1350); p != 50 {
		t.Fatalf("median: got %v want 50", p)
	}
	if p := b.Percentile(1275); p != 30 {
		t.Fatalf("midway p10..p50: got %v want 30", p)
	}
	if p := b.Percentile(500); p != 1 {
		t.Fatalf("far low clamps to 1: got %v", p)
	}
	if p := b.Percentile(5000); p != 99 {
		t.Fatalf("far high clamps to 99: got %v", p)
	}
	if !math.IsNaN(b.Percentile(math.NaN())) {
		t.Fatalf("NaN in, NaN out")
	}
}
