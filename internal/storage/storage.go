// internal/storage/storage.go
package storage

import (
	"fmt"
	"time"

	"github.com/motionlab/kinema/pkg/core"
)

// ErrRunNotIndexed signals that a frame arrived before its run row was
// persisted. The worker treats this as an expected startup race and
// requeues the frame.
var ErrRunNotIndexed = fmt.Errorf("run not indexed yet")

// ErrBackendNotReady signals that the backend cannot accept writes yet;
// records stay queued until it becomes ready.
var ErrBackendNotReady = fmt.Errorf("storage backend not ready")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Ready reports whether the backend can accept writes. Queued
	// records are held until this flips true.
	Ready() bool

	// Run management. StartRun assigns the run id to the passed pointer.
	StartRun(r *core.Run) error
	EndRun(runID uint, endedAt time.Time, frames uint) error

	// Record writes
	RecordFrames(frames []core.Frame) error
	RecordClassification(c *core.Classification) error
	RecordPerformance(p *core.Performance) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the recording archive.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// WriteTimer is an optional interface for backends that track how long
// their last database write took; the monitor samples it.
type WriteTimer interface {
	GetLastDBWriteDuration() time.Duration
}
