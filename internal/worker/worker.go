// Package worker connects the dispatcher topics to the storage backend.
// Frames are batched in an internal queue and drained on a fixed interval;
// run lifecycle events are written through immediately.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/motionlab/kinema/internal/cache"
	"github.com/motionlab/kinema/internal/influx"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/queue"
	"github.com/motionlab/kinema/internal/storage"
	"github.com/motionlab/kinema/pkg/core"
)

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	RunIndex      *cache.RunIndex
	LogManager    *logging.SlogManager
	Influx        *influx.Manager // nil when influx is disabled
	WriteInterval time.Duration
}

// Manager routes pipeline events to the backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	frames *queue.Queue[core.Frame]

	// flushMu serializes drain cycles: the write loop ticker, the
	// run-ended handler, and Stop all call flushFrames.
	flushMu sync.Mutex
	// Frames that could not be resolved to a run on the previous drain.
	// They get one more cycle before being dropped.
	held []core.Frame

	framesWritten atomic.Uint64
	stopChan      chan struct{}
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = 2 * time.Second
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		frames:  queue.New[core.Frame](),
	}
}

// Start launches the frame writer goroutine.
func (m *Manager) Start() {
	m.stopChan = make(chan struct{})
	go m.writeLoop()
}

// Stop halts the writer after a final drain.
func (m *Manager) Stop() {
	if m.stopChan != nil {
		close(m.stopChan)
	}
	m.flushFrames()
}

// FramesWritten returns the total number of frames handed to the backend.
func (m *Manager) FramesWritten() uint64 {
	return m.framesWritten.Load()
}

// PendingFrames returns the number of frames awaiting the next drain.
func (m *Manager) PendingFrames() int {
	return m.frames.Len()
}

// GetLastDBWriteDuration returns the duration of the last backend write
// cycle, or 0 if the backend doesn't expose this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(storage.WriteTimer); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

func (m *Manager) writeLoop() {
	ticker := time.NewTicker(m.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.flushFrames()
		}
	}
}

// flushFrames resolves queued frames to their runs and writes them as one
// batch. Frames whose run is not indexed yet are held for one more cycle.
func (m *Manager) flushFrames() {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	log := m.deps.LogManager.Logger()

	incoming := m.frames.GetAndEmpty()
	if len(incoming) == 0 && len(m.held) == 0 {
		return
	}

	resolved := make([]core.Frame, 0, len(incoming)+len(m.held))

	for _, f := range m.held {
		if id, ok := m.deps.RunIndex.Get(f.SessionID); ok {
			f.RunID = id
			resolved = append(resolved, f)
		} else {
			log.Warn("Dropping frame with no run", "session", f.SessionID, "seq", f.Seq)
		}
	}
	m.held = nil

	for _, f := range incoming {
		if f.RunID == 0 {
			id, ok := m.deps.RunIndex.Get(f.SessionID)
			if !ok {
				m.held = append(m.held, f)
				continue
			}
			f.RunID = id
		}
		resolved = append(resolved, f)
	}

	if len(resolved) == 0 {
		return
	}

	if err := m.backend.RecordFrames(resolved); err != nil {
		log.Error("Failed to write frame batch, requeueing", "count", len(resolved), "error", err)
		m.frames.Push(resolved...)
		return
	}
	m.framesWritten.Add(uint64(len(resolved)))
}
