// Package snapshot persists the edit state of a study so an interrupted
// session can resume. Files are zstd-compressed gob with a JSON header line
// up front, so `zstd -dc | head -1` identifies a file without decoding the
// payload.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version  int    `json:"version"`
	StudyID  string `json:"study_id"`
	Revision uint64 `json:"revision"`
}

// SettingsV1 captures the tool state alongside the mask, so resuming puts
// the editor back where it was.
type SettingsV1 struct {
	Label       int    `json:"label"`
	Tool        string `json:"tool"`
	Radius      int    `json:"radius"`
	Orientation string `json:"orientation"`
	View        string `json:"view"`
	Brightness  int    `json:"brightness"`
	Contrast    int    `json:"contrast"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	PatientID string     `json:"patient_id"`
	Dims      [3]int     `json:"dims"`
	SpacingMM [3]float64 `json:"spacing_mm"`
	SavedAt   time.Time  `json:"saved_at"`

	Settings SettingsV1 `json:"settings"`

	// Labels is the full edited payload, voxel order x-fastest.
	Labels []byte `json:"-"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Read header line (ignore it; gob also contains the header).
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// PeekHeader reads only the JSON header line.
func PeekHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header line: %w", err)
	}
	return h, nil
}
