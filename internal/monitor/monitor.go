// Package monitor samples service health on a fixed interval and feeds
// the samples into the recording pipeline and, when configured, InfluxDB.
package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/influx"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/internal/worker"
	"github.com/motionlab/kinema/pkg/core"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	SessionManager *session.Manager
	WorkerManager  *worker.Manager
	Dispatcher     *dispatcher.Dispatcher
	LogManager     *logging.SlogManager
	Influx         *influx.Manager // nil when influx is disabled
	Interval       time.Duration
}

// Service samples and publishes service health.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor loop is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample assembles one health snapshot.
func (s *Service) Sample() *core.Performance {
	p := &core.Performance{
		At:         time.Now(),
		Goroutines: runtime.NumGoroutine(),
	}

	if s.deps.SessionManager != nil {
		active, running := s.deps.SessionManager.Counts()
		p.ActiveSessions = active
		p.RunningSessions = running
	}

	if s.deps.Dispatcher != nil {
		p.Queues = core.QueueLengths{
			Frames:          s.deps.Dispatcher.QueueLen(dispatcher.TopicFrameRecorded),
			Runs:            s.deps.Dispatcher.QueueLen(dispatcher.TopicRunEnded),
			Classifications: s.deps.Dispatcher.QueueLen(dispatcher.TopicClassification),
		}
		p.EventsDropped = s.deps.Dispatcher.Dropped()
	}

	if s.deps.WorkerManager != nil {
		p.Queues.Frames += s.deps.WorkerManager.PendingFrames()
		p.LastWriteMS = float64(s.deps.WorkerManager.GetLastDBWriteDuration().Milliseconds())
		p.FramesWritten = s.deps.WorkerManager.FramesWritten()
	}

	// Interval 0 asks for usage since the previous call, which never
	// blocks the sampling loop.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		p.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		p.MemPercent = vm.UsedPercent
	}

	return p
}

// Start launches the sampling goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting health monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				sample := s.Sample()

				if s.deps.Dispatcher != nil {
					if _, err := s.deps.Dispatcher.Publish(dispatcher.TopicPerformance, sample); err != nil {
						logger.Debug("Failed to publish health sample", "error", err)
					}
				}

				if s.deps.Influx != nil {
					if err := s.deps.Influx.WritePerformance(context.Background(), sample); err != nil {
						logger.Debug("Failed to ship health sample to InfluxDB", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
