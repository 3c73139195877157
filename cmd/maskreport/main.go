// maskreport computes the per-organ feature CSV for a CT/mask pair without
// running the editor server, and optionally grades volumes against the
// pediatric reference table.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/HYEJI0818/AIVIS-Q/internal/analysis"
	"github.com/HYEJI0818/AIVIS-Q/internal/config"
	"github.com/HYEJI0818/AIVIS-Q/internal/nifti"
	"github.com/HYEJI0818/AIVIS-Q/internal/reference"
	"github.com/HYEJI0818/AIVIS-Q/internal/report"
)

func main() {
	var (
		ctPath    = flag.String("ct", "", "CT volume (.nii or .nii.gz)")
		maskPath  = flag.String("mask", "", "label mask volume (.nii or .nii.gz)")
		outPath   = flag.String("out", "", "output CSV path (default: stdout)")
		patientID = flag.String("patient", "", "patient id for the report")
		studyID   = flag.String("study", "", "study id for the report")
		configDir = flag.String("configs", "./configs", "config directory")
		refPath   = flag.String("reference", "", "pediatric reference table (optional)")
	)
	flag.Parse()

	if *ctPath == "" || *maskPath == "" {
		fmt.Fprintln(os.Stderr, "missing -ct or -mask")
		os.Exit(2)
	}

	cfg, err := config.Load(filepath.Join(*configDir, "editor.yaml"))
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	sessCfg, err := cfg.SessionConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "label catalog:", err)
		os.Exit(1)
	}

	ct, err := decodeFile(*ctPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ct:", err)
		os.Exit(1)
	}
	mv, err := decodeFile(*maskPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mask:", err)
		os.Exit(1)
	}
	if ct.Dims != mv.Dims {
		fmt.Fprintf(os.Stderr, "dims mismatch: ct %s vs mask %s\n", ct.Dims, mv.Dims)
		os.Exit(1)
	}

	hu, err := ct.Values()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ct values:", err)
		os.Exit(1)
	}
	labels, err := mv.Labels()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mask labels:", err)
		os.Exit(1)
	}

	feats, err := analysis.Compute(hu, labels, mv.Dims, mv.Spacing, sessCfg.Catalog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteCSV(out, *patientID, *studyID, feats); err != nil {
		fmt.Fprintln(os.Stderr, "write csv:", err)
		os.Exit(1)
	}

	if *refPath != "" {
		tbl, err := reference.Load(*refPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "reference:", err)
			os.Exit(1)
		}
		printGrades(tbl, feats)
	}
}

func decodeFile(path string) (*nifti.Volume, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return nifti.Decode(raw)
}

// printGrades writes the reference grading to stderr so the CSV on stdout
// stays machine-readable.
func printGrades(tbl *reference.Table, feats []analysis.OrganFeatures) {
	grade := func(name string, v float64, b reference.Band) {
		if math.IsNaN(v) {
			fmt.Fprintf(os.Stderr, "%-22s n/a\n", name)
			return
		}
		fmt.Fprintf(os.Stderr, "%-22s %8.1f  p%.0f  %s\n", name, v, b.Percentile(v), b.Grade(v))
	}
	for _, f := range feats {
		switch f.Name {
		case "Liver":
			grade("liver_volume_ml", f.VolumeML, tbl.LiverVolumeML)
		case "Spleen":
			grade("spleen_volume_ml", f.VolumeML, tbl.SpleenVolumeML)
		}
	}
	grade("liver_spleen_ratio", analysis.LiverSpleenRatio(feats), tbl.LiverSpleenRatio)
}
