// Package report renders organ feature vectors as CSV for downstream
// spreadsheet use. Files start with a UTF-8 BOM so Excel detects the
// encoding, and every numeric field is fixed to four decimals.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/HYEJI0818/AIVIS-Q/internal/analysis"
)

var columns = []string{
	"patient_id", "study_id", "organ",
	"volume_ml",
	"mean_HU", "std_HU", "min_HU", "max_HU", "p10_HU", "p90_HU",
	"GLCM_contrast", "GLCM_homogeneity", "GLRLM_LRE", "GLSZM_ZE",
}

// WriteCSV writes one row per organ. NaN statistics (empty organs) render
// as empty cells.
func WriteCSV(w io.Writer, patientID, studyID string, feats []analysis.OrganFeatures) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("report: write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("report: header: %w", err)
	}
	for _, f := range feats {
		row := []string{
			patientID, studyID, f.Name,
			num(f.VolumeML),
			num(f.MeanHU), num(f.StdHU), num(f.MinHU), num(f.MaxHU), num(f.P10HU), num(f.P90HU),
			num(f.GLCMContrast), num(f.GLCMHomogeneity), num(f.LongRunEmphasis), num(f.ZoneEntropy),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: row %s: %w", f.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	return nil
}

func num(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}
