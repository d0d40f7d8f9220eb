package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/motionlab/kinema/internal/cache"
	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/storage"
	"github.com/motionlab/kinema/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing.
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing.
type mockBackend struct {
	mu sync.Mutex

	nextID          uint
	ready           bool
	started         []*core.Run
	ended           map[uint]core.RunEnd
	frames          []core.Frame
	classifications []*core.Classification
	performances    []*core.Performance

	recordFramesErr error
}

func newMockBackend() *mockBackend {
	return &mockBackend{ready: true, ended: make(map[uint]core.RunEnd)}
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }
func (b *mockBackend) Ready() bool  { return b.ready }

func (b *mockBackend) StartRun(r *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	r.ID = b.nextID
	b.started = append(b.started, r)
	return nil
}

func (b *mockBackend) EndRun(runID uint, endedAt time.Time, frames uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended[runID] = core.RunEnd{EndedAt: endedAt, Frames: frames}
	return nil
}

func (b *mockBackend) RecordFrames(frames []core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recordFramesErr != nil {
		return b.recordFramesErr
	}
	b.frames = append(b.frames, frames...)
	return nil
}

func (b *mockBackend) RecordClassification(c *core.Classification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.classifications = append(b.classifications, c)
	return nil
}

func (b *mockBackend) RecordPerformance(p *core.Performance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.performances = append(b.performances, p)
	return nil
}

func (b *mockBackend) frameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

func newTestManager(backend storage.Backend) *Manager {
	return NewManager(Dependencies{
		RunIndex:      cache.NewRunIndex(),
		LogManager:    logging.NewSlogManager(),
		WriteInterval: 50 * time.Millisecond,
	}, backend)
}

func TestHandleRunStarted_AssignsAndIndexes(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	run := &core.Run{SessionID: "sess-1", Module: "ProjectileMotion", StartedAt: time.Now()}
	_, err := m.handleRunStarted(dispatcher.Event{Topic: dispatcher.TopicRunStarted, Payload: run})
	if err != nil {
		t.Fatalf("handleRunStarted failed: %v", err)
	}

	if run.ID != 1 {
		t.Errorf("expected run id 1, got %d", run.ID)
	}
	id, ok := m.deps.RunIndex.Get("sess-1")
	if !ok || id != 1 {
		t.Errorf("expected session indexed to run 1, got %d (ok=%v)", id, ok)
	}
}

func TestHandleRunStarted_BackendNotReady(t *testing.T) {
	backend := newMockBackend()
	backend.ready = false
	m := newTestManager(backend)

	run := &core.Run{SessionID: "sess-1"}
	_, err := m.handleRunStarted(dispatcher.Event{Payload: run})
	if !errors.Is(err, storage.ErrBackendNotReady) {
		t.Errorf("expected ErrBackendNotReady, got %v", err)
	}
}

func TestHandleRunEnded_UnknownSession(t *testing.T) {
	m := newTestManager(newMockBackend())

	end := core.RunEnd{SessionID: "sess-unknown", EndedAt: time.Now()}
	_, err := m.handleRunEnded(dispatcher.Event{Payload: end})
	if !errors.Is(err, storage.ErrRunNotIndexed) {
		t.Errorf("expected ErrRunNotIndexed, got %v", err)
	}
}

func TestHandleRunEnded_FlushesAndUnindexes(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	run := &core.Run{SessionID: "sess-1", StartedAt: time.Now()}
	m.handleRunStarted(dispatcher.Event{Payload: run})

	m.handleFrameRecorded(dispatcher.Event{Payload: core.Frame{SessionID: "sess-1", Seq: 1}})
	m.handleFrameRecorded(dispatcher.Event{Payload: core.Frame{SessionID: "sess-1", Seq: 2}})

	end := core.RunEnd{SessionID: "sess-1", EndedAt: time.Now(), Frames: 2}
	if _, err := m.handleRunEnded(dispatcher.Event{Payload: end}); err != nil {
		t.Fatalf("handleRunEnded failed: %v", err)
	}

	if backend.frameCount() != 2 {
		t.Errorf("expected 2 frames flushed before end, got %d", backend.frameCount())
	}
	if _, ok := backend.ended[run.ID]; !ok {
		t.Error("expected run marked ended on backend")
	}
	if _, ok := m.deps.RunIndex.Get("sess-1"); ok {
		t.Error("expected session removed from run index")
	}
}

func TestFlushFrames_ResolvesRunIDs(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)
	m.deps.RunIndex.Set("sess-1", 7)

	m.handleFrameRecorded(dispatcher.Event{Payload: core.Frame{SessionID: "sess-1", Seq: 1}})
	m.flushFrames()

	if backend.frameCount() != 1 {
		t.Fatalf("expected 1 frame written, got %d", backend.frameCount())
	}
	if backend.frames[0].RunID != 7 {
		t.Errorf("expected run id 7 resolved, got %d", backend.frames[0].RunID)
	}
	if m.FramesWritten() != 1 {
		t.Errorf("expected 1 frame counted, got %d", m.FramesWritten())
	}
}

func TestFlushFrames_HoldsUnresolvedOneCycle(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	m.handleFrameRecorded(dispatcher.Event{Payload: core.Frame{SessionID: "sess-late", Seq: 1}})
	m.flushFrames()

	if backend.frameCount() != 0 {
		t.Fatalf("expected no frames written yet, got %d", backend.frameCount())
	}

	// Run becomes indexed before the next cycle.
	m.deps.RunIndex.Set("sess-late", 3)
	m.flushFrames()

	if backend.frameCount() != 1 {
		t.Fatalf("expected held frame written, got %d", backend.frameCount())
	}
	if backend.frames[0].RunID != 3 {
		t.Errorf("expected run id 3, got %d", backend.frames[0].RunID)
	}
}

func TestFlushFrames_DropsAfterTwoCycles(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	m.handleFrameRecorded(dispatcher.Event{Payload: core.Frame{SessionID: "sess-ghost", Seq: 1}})
	m.flushFrames()
	m.flushFrames()

	if backend.frameCount() != 0 {
		t.Errorf("expected ghost frame dropped, got %d written", backend.frameCount())
	}
	if m.PendingFrames() != 0 {
		t.Errorf("expected empty queue, got %d", m.PendingFrames())
	}
}

func TestFlushFrames_RequeuesOnWriteError(t *testing.T) {
	backend := newMockBackend()
	backend.recordFramesErr = errors.New("db down")
	m := newTestManager(backend)
	m.deps.RunIndex.Set("sess-1", 1)

	m.handleFrameRecorded(dispatcher.Event{Payload: core.Frame{SessionID: "sess-1", Seq: 1}})
	m.flushFrames()

	if m.PendingFrames() != 1 {
		t.Fatalf("expected frame requeued after write error, got %d pending", m.PendingFrames())
	}

	backend.recordFramesErr = nil
	m.flushFrames()
	if backend.frameCount() != 1 {
		t.Errorf("expected frame written after recovery, got %d", backend.frameCount())
	}
}

func TestFlushFrames_ConcurrentDrains(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	// Frames without an indexed run land in the held slice, the state
	// shared between drain cycles. Drain from several goroutines at once
	// the way the ticker and the run-ended handler do; the race detector
	// fails this test if the cycles are not serialized.
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.frames.Push(core.Frame{SessionID: "sess-late", Seq: uint(i)})
				m.flushFrames()
			}
		}()
	}
	wg.Wait()

	m.deps.RunIndex.Set("sess-late", 1)
	m.flushFrames()
	m.flushFrames()
	if m.PendingFrames() != 0 {
		t.Errorf("expected empty queue after drains, got %d", m.PendingFrames())
	}
}

func TestHandleClassification_ResolvesRunID(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)
	m.deps.RunIndex.Set("sess-1", 5)

	c := &core.Classification{SessionID: "sess-1", Module: "SpringOscillation", Source: "keyword"}
	if _, err := m.handleClassification(dispatcher.Event{Payload: c}); err != nil {
		t.Fatalf("handleClassification failed: %v", err)
	}

	if len(backend.classifications) != 1 || backend.classifications[0].RunID != 5 {
		t.Errorf("expected classification recorded with run id 5, got %+v", backend.classifications)
	}
}

func TestHandleClassification_NoSession(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	c := &core.Classification{Prompt: "what is this", Source: "keyword"}
	if _, err := m.handleClassification(dispatcher.Event{Payload: c}); err != nil {
		t.Fatalf("handleClassification failed: %v", err)
	}

	if len(backend.classifications) != 1 || backend.classifications[0].RunID != 0 {
		t.Errorf("expected classification with zero run id, got %+v", backend.classifications)
	}
}

func TestHandlePerformance(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	p := &core.Performance{ActiveSessions: 2}
	if _, err := m.handlePerformance(dispatcher.Event{Payload: p}); err != nil {
		t.Fatalf("handlePerformance failed: %v", err)
	}
	if len(backend.performances) != 1 {
		t.Errorf("expected 1 performance sample, got %d", len(backend.performances))
	}
}

func TestHandlers_RejectWrongPayloadTypes(t *testing.T) {
	m := newTestManager(newMockBackend())

	if _, err := m.handleRunStarted(dispatcher.Event{Payload: "nope"}); err == nil {
		t.Error("expected error for wrong run payload type")
	}
	if _, err := m.handleFrameRecorded(dispatcher.Event{Payload: 42}); err == nil {
		t.Error("expected error for wrong frame payload type")
	}
	if _, err := m.handleClassification(dispatcher.Event{Payload: core.Classification{}}); err == nil {
		t.Error("expected error for non-pointer classification payload")
	}
}

func TestEndToEnd_ThroughDispatcher(t *testing.T) {
	backend := newMockBackend()
	m := newTestManager(backend)

	d, err := dispatcher.New(&mockLogger{})
	if err != nil {
		t.Fatalf("dispatcher.New failed: %v", err)
	}
	m.RegisterHandlers(d)
	m.Start()
	defer m.Stop()

	run := &core.Run{SessionID: "sess-1", Module: "PendulumMotion", StartedAt: time.Now()}
	if _, err := d.Publish(dispatcher.TopicRunStarted, run); err != nil {
		t.Fatalf("publish run.started failed: %v", err)
	}

	for i := 1; i <= 5; i++ {
		d.Publish(dispatcher.TopicFrameRecorded, core.Frame{SessionID: "sess-1", Seq: uint(i)})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && backend.frameCount() < 5 {
		time.Sleep(20 * time.Millisecond)
	}
	if backend.frameCount() != 5 {
		t.Errorf("expected 5 frames written, got %d", backend.frameCount())
	}
}
