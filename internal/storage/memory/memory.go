// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/pkg/core"
)

// runRecord groups a run with its time-series frames and the
// classification that created it.
type runRecord struct {
	run            core.Run
	frames         []core.Frame
	classification *core.Classification
}

// Backend stores run data in memory and exports completed runs to
// gzipped JSON. It is the only backend with read-back.
type Backend struct {
	cfg config.MemoryConfig

	runs         map[uint]*runRecord
	performances []core.Performance

	idCounter      uint
	lastExportPath string
	lastExportMeta core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:  cfg,
		runs: make(map[uint]*runRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Ready always reports true; memory writes cannot be unavailable.
func (b *Backend) Ready() bool {
	return true
}

// StartRun begins recording a new run and assigns its id.
func (b *Backend) StartRun(r *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	r.ID = b.idCounter

	b.runs[r.ID] = &runRecord{
		run:    *r,
		frames: make([]core.Frame, 0),
	}
	return nil
}

// EndRun finalizes a run and exports it to disk.
func (b *Backend) EndRun(runID uint, endedAt time.Time, frames uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.runs[runID]
	if !ok {
		return fmt.Errorf("unknown run id %d", runID)
	}
	record.run.EndedAt = &endedAt
	record.run.Frames = frames

	return b.exportJSON(record)
}

// RecordFrames appends a batch of frames to their runs. Frames for
// unknown runs are silently ignored.
func (b *Backend) RecordFrames(frames []core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range frames {
		if record, ok := b.runs[f.RunID]; ok {
			record.frames = append(record.frames, f)
		}
	}
	return nil
}

// RecordClassification stores a classifier decision, attaching it to its
// run when one exists.
func (b *Backend) RecordClassification(c *core.Classification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.runs[c.RunID]; ok {
		cc := *c
		record.classification = &cc
	}
	return nil
}

// RecordPerformance stores a service health sample.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.performances = append(b.performances, *p)
	return nil
}

// Recording returns the assembled recording for a run.
func (b *Backend) Recording(runID uint) (core.Recording, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.runs[runID]
	if !ok {
		return core.Recording{}, false
	}
	rec := core.Recording{
		Run:    record.run,
		Frames: append([]core.Frame(nil), record.frames...),
	}
	if record.classification != nil {
		cc := *record.classification
		rec.Classification = &cc
	}
	return rec, true
}

// Performances returns the stored health samples.
func (b *Backend) Performances() []core.Performance {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Performance(nil), b.performances...)
}

// GetExportedFilePath returns the path of the last exported recording.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns the upload metadata of the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
