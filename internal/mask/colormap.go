package mask

import "math"

// AdjustedColormap derives the draw-layer LUT for the renderer: one color
// per label id (index 0 is background black), with display brightness and
// contrast baked in. Brightness and contrast are 0..100 with 50 neutral.
// This is a pure function of the catalog and settings; the renderer
// re-applies it whenever the sliders move.
func AdjustedColormap(cat Catalog, brightness, contrast int) []RGB {
	lut := make([]RGB, int(cat.MaxID())+1)
	for _, l := range cat {
		lut[l.ID] = adjustRGB(l.Color, brightness, contrast)
	}
	return lut
}

func adjustRGB(c RGB, brightness, contrast int) RGB {
	offset := (float64(brightness) - 50) / 50 * 128
	factor := float64(contrast) / 50
	return RGB{
		R: adjustChannel(c.R, factor, offset),
		G: adjustChannel(c.G, factor, offset),
		B: adjustChannel(c.B, factor, offset),
	}
}

// adjustChannel applies contrast about the midpoint, then brightness, then
// clamps to 0..255.
func adjustChannel(v uint8, factor, offset float64) uint8 {
	adj := (float64(v)-128)*factor + 128 + offset
	adj = math.Round(adj)
	if adj < 0 {
		adj = 0
	}
	if adj > 255 {
		adj = 255
	}
	return uint8(adj)
}
