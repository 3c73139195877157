// Package analysis computes per-organ quantitative features from a CT
// volume and its segmentation mask: volume, first-order HU statistics and a
// small set of texture descriptors (GLCM contrast and homogeneity, GLRLM
// long-run emphasis, GLSZM zone entropy).
package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
)

// glcmLevels is the grey-level quantization used for every texture feature.
const glcmLevels = 32

// maxTextureSlices bounds the number of axial slices sampled for the GLCM.
const maxTextureSlices = 5

// OrganFeatures holds the computed feature vector for one labeled organ.
type OrganFeatures struct {
	Label      mask.Label
	Name       string
	VoxelCount int
	VolumeML   float64

	MeanHU float64
	StdHU  float64
	MinHU  float64
	MaxHU  float64
	P10HU  float64
	P90HU  float64

	GLCMContrast    float64
	GLCMHomogeneity float64
	LongRunEmphasis float64
	ZoneEntropy     float64
}

// Compute derives features for every catalog organ present in the mask.
// ct holds HU values in the same flat voxel order as labels. Organs with no
// voxels are reported with zero counts and NaN statistics.
func Compute(ct []float64, labels []byte, dims mask.Dims, spacing [3]float64, cat mask.Catalog) ([]OrganFeatures, error) {
	if len(ct) != dims.Count() || len(labels) != dims.Count() {
		return nil, fmt.Errorf("analysis: %d HU values, %d labels for dims %s", len(ct), len(labels), dims)
	}

	out := make([]OrganFeatures, 0, len(cat))
	for _, info := range cat {
		f := OrganFeatures{Label: info.ID, Name: info.Name}

		var hu []float64
		for i, l := range labels {
			if mask.Label(l) == info.ID {
				hu = append(hu, ct[i])
			}
		}
		f.VoxelCount = len(hu)
		f.VolumeML = VolumeML(len(hu), spacing)

		if len(hu) == 0 {
			f.MeanHU, f.StdHU = math.NaN(), math.NaN()
			f.MinHU, f.MaxHU = math.NaN(), math.NaN()
			f.P10HU, f.P90HU = math.NaN(), math.NaN()
			out = append(out, f)
			continue
		}

		sorted := append([]float64(nil), hu...)
		sort.Float64s(sorted)
		f.MeanHU = stat.Mean(hu, nil)
		f.StdHU = stat.StdDev(hu, nil)
		f.MinHU = sorted[0]
		f.MaxHU = sorted[len(sorted)-1]
		f.P10HU = stat.Quantile(0.1, stat.Empirical, sorted, nil)
		f.P90HU = stat.Quantile(0.9, stat.Empirical, sorted, nil)

		q := quantize(ct, labels, dims, info.ID, f.MinHU, f.MaxHU)
		f.GLCMContrast, f.GLCMHomogeneity = glcm(q, dims)
		f.LongRunEmphasis = glrlmLRE(q, dims)
		f.ZoneEntropy = glszmZE(q, dims)

		out = append(out, f)
	}
	return out, nil
}

// VolumeML converts a voxel count to milliliters given spacing in mm.
func VolumeML(count int, spacing [3]float64) float64 {
	return float64(count) * spacing[0] * spacing[1] * spacing[2] / 1000.0
}

// LiverSpleenRatio returns liver volume over spleen volume, NaN when the
// spleen is empty.
func LiverSpleenRatio(feats []OrganFeatures) float64 {
	var liver, spleen float64
	for _, f := range feats {
		switch f.Name {
		case "Liver":
			liver = f.VolumeML
		case "Spleen":
			spleen = f.VolumeML
		}
	}
	if spleen == 0 {
		return math.NaN()
	}
	return liver / spleen
}

// quantize maps organ voxels onto 1..glcmLevels and everything else to 0.
// A flat organ (min == max) quantizes to level 1 everywhere.
func quantize(ct []float64, labels []byte, dims mask.Dims, target mask.Label, lo, hi float64) []uint8 {
	q := make([]uint8, dims.Count())
	span := hi - lo
	for i, l := range labels {
		if mask.Label(l) != target {
			continue
		}
		if span == 0 {
			q[i] = 1
			continue
		}
		lvl := int((ct[i]-lo)/span*float64(glcmLevels-1)) + 1
		if lvl > glcmLevels {
			lvl = glcmLevels
		}
		q[i] = uint8(lvl)
	}
	return q
}

// glcm builds a symmetric co-occurrence matrix with the (1,0) in-plane
// offset over up to maxTextureSlices evenly sampled axial slices and returns
// contrast and homogeneity.
func glcm(q []uint8, dims mask.Dims) (contrast, homogeneity float64) {
	var m [glcmLevels + 1][glcmLevels + 1]float64
	total := 0.0

	step := dims.Z / maxTextureSlices
	if step < 1 {
		step = 1
	}
	for z := 0; z < dims.Z; z += step {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x+1 < dims.X; x++ {
				a := q[dims.Index(x, y, z)]
				b := q[dims.Index(x+1, y, z)]
				if a == 0 || b == 0 {
					continue
				}
				m[a][b]++
				m[b][a]++
				total += 2
			}
		}
	}
	if total == 0 {
		return 0, 0
	}
	for i := 1; i <= glcmLevels; i++ {
		for j := 1; j <= glcmLevels; j++ {
			p := m[i][j] / total
			if p == 0 {
				continue
			}
			d := float64(i - j)
			contrast += p * d * d
			homogeneity += p / (1 + math.Abs(d))
		}
	}
	return contrast, homogeneity
}

// glrlmLRE measures long-run emphasis over x-direction runs of equal
// quantized level inside the organ.
func glrlmLRE(q []uint8, dims mask.Dims) float64 {
	var sum, runs float64
	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			x := 0
			for x < dims.X {
				lvl := q[dims.Index(x, y, z)]
				run := 1
				for x+run < dims.X && q[dims.Index(x+run, y, z)] == lvl {
					run++
				}
				if lvl != 0 {
					sum += float64(run) * float64(run)
					runs++
				}
				x += run
			}
		}
	}
	if runs == 0 {
		return 0
	}
	return sum / runs
}

// glszmZE computes zone entropy over 6-connected zones of equal quantized
// level. Zone sizes are found with an iterative flood fill.
func glszmZE(q []uint8, dims mask.Dims) float64 {
	seen := make([]bool, len(q))
	var sizes []int

	var stack []int
	for start, lvl := range q {
		if lvl == 0 || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		size := 0
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++

			x := idx % dims.X
			y := (idx / dims.X) % dims.Y
			z := idx / (dims.X * dims.Y)
			for _, n := range [6][3]int{
				{x - 1, y, z}, {x + 1, y, z},
				{x, y - 1, z}, {x, y + 1, z},
				{x, y, z - 1}, {x, y, z + 1},
			} {
				if n[0] < 0 || n[0] >= dims.X || n[1] < 0 || n[1] >= dims.Y || n[2] < 0 || n[2] >= dims.Z {
					continue
				}
				ni := dims.Index(n[0], n[1], n[2])
				if !seen[ni] && q[ni] == lvl {
					seen[ni] = true
					stack = append(stack, ni)
				}
			}
		}
		sizes = append(sizes, size)
	}

	if len(sizes) == 0 {
		return 0
	}
	n := float64(len(sizes))
	// Entropy over the zone-count distribution grouped by size.
	bySize := map[int]float64{}
	for _, s := range sizes {
		bySize[s]++
	}
	var h float64
	for _, c := range bySize {
		p := c / n
		h -= p * math.Log2(p)
	}
	return h
}
