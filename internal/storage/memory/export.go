// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/motionlab/kinema/internal/geo"
)

// RecordingExport is the root JSON structure written per completed run.
type RecordingExport struct {
	Version        string               `json:"version"`
	RunID          uint                 `json:"runId"`
	SessionID      string               `json:"sessionId"`
	Module         string               `json:"module"`
	Inputs         map[string]any       `json:"inputs"`
	StartedAt      time.Time            `json:"startedAt"`
	EndedAt        *time.Time           `json:"endedAt"`
	FrameCount     uint                 `json:"frameCount"`
	Frames         [][]any              `json:"frames"`
	Classification *ClassificationJSON  `json:"classification,omitempty"`
	TrackWKT       string               `json:"trackWkt,omitempty"`
}

// ClassificationJSON is the embedded classifier decision.
type ClassificationJSON struct {
	Prompt      string `json:"prompt"`
	Module      string `json:"module"`
	Source      string `json:"source"`
	Explanation string `json:"explanation"`
	LatencyMS   int64  `json:"latencyMs"`
}

// exportJSON writes one run's data to a (optionally gzipped) JSON file.
// Caller holds the write lock.
func (b *Backend) exportJSON(record *runRecord) error {
	export := buildExport(record)

	module := strings.ReplaceAll(record.run.Module, " ", "_")
	timestamp := record.run.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s_run%d.json.gz", module, timestamp, record.run.ID)
	} else {
		filename = fmt.Sprintf("%s_%s_run%d.json", module, timestamp, record.run.ID)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExportMeta.Filename = filename
	b.lastExportMeta.Module = record.run.Module
	b.lastExportMeta.Frames = record.run.Frames
	return nil
}

func buildExport(record *runRecord) RecordingExport {
	export := RecordingExport{
		Version:    "1",
		RunID:      record.run.ID,
		SessionID:  record.run.SessionID,
		Module:     record.run.Module,
		Inputs:     record.run.Inputs,
		StartedAt:  record.run.StartedAt,
		EndedAt:    record.run.EndedAt,
		FrameCount: record.run.Frames,
		Frames:     make([][]any, 0, len(record.frames)),
	}

	// Frame rows: [seq, simTime, displacement, velocity, x, y, regime]
	for _, f := range record.frames {
		export.Frames = append(export.Frames, []any{
			f.Seq, f.SimTime, f.Displacement, f.Velocity, f.X, f.Y, f.Regime,
		})
	}

	// Ground track in WKT; anchored runs get WGS84 lon/lat, unanchored
	// ones local meters. Empty for runs too short to form a line.
	export.TrackWKT = geo.NewProjector(record.run.Scene).TrackWKT(record.frames)

	if record.classification != nil {
		export.Classification = &ClassificationJSON{
			Prompt:      record.classification.Prompt,
			Module:      record.classification.Module,
			Source:      record.classification.Source,
			Explanation: record.classification.Explanation,
			LatencyMS:   record.classification.LatencyMS,
		}
	}

	return export
}

func writeJSON(path string, data RecordingExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data RecordingExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
