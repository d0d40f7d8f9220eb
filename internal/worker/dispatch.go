package worker

import (
	"context"
	"fmt"

	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/storage"
	"github.com/motionlab/kinema/pkg/core"
)

// RegisterHandlers registers all pipeline handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Run lifecycle - run.started is sync so the run ID is indexed before
	// the first frame needs it.
	d.Register(dispatcher.TopicRunStarted, m.handleRunStarted, dispatcher.Logged())
	d.Register(dispatcher.TopicRunEnded, m.handleRunEnded, dispatcher.Buffered(100), dispatcher.Logged())

	// High-volume frame stream - buffered
	d.Register(dispatcher.TopicFrameRecorded, m.handleFrameRecorded, dispatcher.Buffered(10000))

	// Classifier decisions - buffered
	d.Register(dispatcher.TopicClassification, m.handleClassification, dispatcher.Buffered(1000), dispatcher.Logged())

	// Health samples - buffered
	d.Register(dispatcher.TopicPerformance, m.handlePerformance, dispatcher.Buffered(100))
}

func (m *Manager) handleRunStarted(e dispatcher.Event) (any, error) {
	run, ok := e.Payload.(*core.Run)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s", e.Payload, e.Topic)
	}

	if !m.backend.Ready() {
		return nil, storage.ErrBackendNotReady
	}

	if err := m.backend.StartRun(run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	m.deps.RunIndex.Set(run.SessionID, run.ID)
	return run.ID, nil
}

func (m *Manager) handleRunEnded(e dispatcher.Event) (any, error) {
	end, ok := e.Payload.(core.RunEnd)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s", e.Payload, e.Topic)
	}

	runID, ok := m.deps.RunIndex.Get(end.SessionID)
	if !ok {
		return nil, storage.ErrRunNotIndexed
	}

	// Drain pending frames first so the run exports complete.
	m.flushFrames()

	if err := m.backend.EndRun(runID, end.EndedAt, end.Frames); err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}

	if m.deps.Influx != nil {
		if err := m.deps.Influx.WriteRunEnd(context.Background(), runID, end.EndedAt, end.Frames); err != nil {
			m.deps.LogManager.Logger().Debug("Failed to ship run summary to InfluxDB",
				"run", runID, "error", err)
		}
	}

	m.deps.RunIndex.Delete(end.SessionID)
	return nil, nil
}

func (m *Manager) handleFrameRecorded(e dispatcher.Event) (any, error) {
	frame, ok := e.Payload.(core.Frame)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s", e.Payload, e.Topic)
	}

	m.frames.Push(frame)
	return nil, nil
}

func (m *Manager) handleClassification(e dispatcher.Event) (any, error) {
	c, ok := e.Payload.(*core.Classification)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s", e.Payload, e.Topic)
	}

	// Attach to the run when the session already has one; a prompt that
	// never led to a started session records with run id zero.
	if c.RunID == 0 && c.SessionID != "" {
		if id, ok := m.deps.RunIndex.Get(c.SessionID); ok {
			c.RunID = id
		}
	}

	if err := m.backend.RecordClassification(c); err != nil {
		return nil, fmt.Errorf("failed to record classification: %w", err)
	}
	return nil, nil
}

func (m *Manager) handlePerformance(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(*core.Performance)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s", e.Payload, e.Topic)
	}

	if err := m.backend.RecordPerformance(p); err != nil {
		return nil, fmt.Errorf("failed to record performance sample: %w", err)
	}
	return nil, nil
}
