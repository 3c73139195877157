// Package reference evaluates measured organ volumes against pediatric
// reference percentile bands loaded from a YAML table.
package reference

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Band holds the percentile anchor points of one measurement.
type Band struct {
	P3  float64 `yaml:"p3"`
	P10 float64 `yaml:"p10"`
	P50 float64 `yaml:"p50"`
	P90 float64 `yaml:"p90"`
	P97 float64 `yaml:"p97"`
}

// Table is the full pediatric reference table.
type Table struct {
	LiverVolumeML    Band `yaml:"liver_volume_ml"`
	SpleenVolumeML   Band `yaml:"spleen_volume_ml"`
	LiverSpleenRatio Band `yaml:"liver_spleen_ratio"`
}

// Grade labels where a measurement falls relative to its band.
type Grade string

const (
	GradeLow    Grade = "LOW"    // below p3
	GradeNormal Grade = "NORMAL" // p3..p97
	GradeHigh   Grade = "HIGH"   // above p97
)

// Load reads a reference table from a YAML file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reference: read %s: %w", path, err)
	}
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("reference: parse %s: %w", path, err)
	}
	for name, b := range map[string]Band{
		"liver_volume_ml":    t.LiverVolumeML,
		"spleen_volume_ml":   t.SpleenVolumeML,
		"liver_spleen_ratio": t.LiverSpleenRatio,
	} {
		if !b.valid() {
			return nil, fmt.Errorf("reference: %s: percentile points must be positive and increasing", name)
		}
	}
	return &t, nil
}

func (b Band) valid() bool {
	return b.P3 > 0 && b.P3 < b.P10 && b.P10 < b.P50 && b.P50 < b.P90 && b.P90 < b.P97
}

// Grade classifies a measured value against the band.
func (b Band) Grade(v float64) Grade {
	switch {
	case v < b.P3:
		return GradeLow
	case v > b.P97:
		return GradeHigh
	default:
		return GradeNormal
	}
}

// Percentile estimates the percentile of a value by linear interpolation
// between the anchor points, clamped to [1, 99]. NaN input gives NaN.
func (b Band) Percentile(v float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	anchors := []struct {
		p, x float64
	}{
		{3, b.P3}, {10, b.P10}, {50, b.P50}, {90, b.P90}, {97, b.P97},
	}
	if v <= anchors[0].x {
		return 1
	}
	if v >= anchors[len(anchors)-1].x {
		return 99
	}
	for i := 1; i < len(anchors); i++ {
		lo, hi := anchors[i-1], anchors[i]
		if v <= hi.x {
			frac := (v - lo.x) / (hi.x - lo.x)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return 99
}
