package session

import (
	"sync"
	"testing"
	"time"

	"github.com/motionlab/kinema/internal/motion"
	"github.com/motionlab/kinema/pkg/core"
)

// capturePub records published events for assertions.
type capturePub struct {
	mu     sync.Mutex
	events []struct {
		topic   string
		payload any
	}
}

func (p *capturePub) Publish(topic string, payload any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, struct {
		topic   string
		payload any
	}{topic, payload})
	return nil, nil
}

func (p *capturePub) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

func (p *capturePub) count(topic string) int {
	n := 0
	for _, tp := range p.topics() {
		if tp == topic {
			n++
		}
	}
	return n
}

func TestManager_CreateUnknownModule(t *testing.T) {
	m := NewManager(nil, nil)
	_, err := m.Create("Teleportation", nil)
	if err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestManager_CreateGetRemove(t *testing.T) {
	m := NewManager(nil, nil)

	s, err := m.Create("SpringOscillation", map[string]any{"mass": 2.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Module() != "SpringOscillation" {
		t.Errorf("expected SpringOscillation, got %s", s.Module())
	}
	if s.Inputs()["mass"] != 2.0 {
		t.Errorf("expected mass 2, got %v", s.Inputs()["mass"])
	}

	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Errorf("Get returned (%v, %v)", got, err)
	}

	if err := m.Remove(s.ID()); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	if _, err := m.Get(s.ID()); err == nil {
		t.Error("expected not-found after remove")
	}
	if err := m.Remove(s.ID()); err == nil {
		t.Error("expected not-found on double remove")
	}
}

func TestSession_InitialState(t *testing.T) {
	m := NewManager(nil, nil)
	s, _ := m.Create("PendulumMotion", nil)

	st := s.State()
	if st.Time != 0 || st.IsRunning || st.TrailLen != 0 {
		t.Errorf("unexpected initial state: %+v", st)
	}
}

func TestSession_StartStopLifecycle(t *testing.T) {
	pub := &capturePub{}
	m := NewManager(pub, nil)
	s, _ := m.Create("SpringOscillation", map[string]any{"timeStep": 0.01})

	s.Start()
	s.Start() // no-op on running session

	deadline := time.After(2 * time.Second)
	for s.State().TrailLen < 3 {
		select {
		case <-deadline:
			t.Fatal("session did not tick in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
	s.Stop() // no-op on halted session

	if pub.count("run.started") != 1 {
		t.Errorf("expected 1 run.started, got %d", pub.count("run.started"))
	}
	if pub.count("run.ended") != 1 {
		t.Errorf("expected 1 run.ended, got %d", pub.count("run.ended"))
	}
	if pub.count("frame.recorded") < 3 {
		t.Errorf("expected at least 3 frames, got %d", pub.count("frame.recorded"))
	}

	// Time advances in whole timeStep increments.
	st := s.State()
	if st.Time <= 0 {
		t.Errorf("expected positive sim time, got %f", st.Time)
	}
}

func TestSession_SetParamResets(t *testing.T) {
	pub := &capturePub{}
	m := NewManager(pub, nil)
	s, _ := m.Create("SpringOscillation", map[string]any{"timeStep": 0.01})

	s.Start()
	deadline := time.After(2 * time.Second)
	for s.State().TrailLen < 2 {
		select {
		case <-deadline:
			t.Fatal("session did not tick in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.SetParam("mass", 5.0)

	st := s.State()
	if st.IsRunning {
		t.Error("expected session halted after SetParam")
	}
	if st.Time != 0 {
		t.Errorf("expected time reset to 0, got %f", st.Time)
	}
	if st.TrailLen != 0 {
		t.Errorf("expected trail cleared, got %d", st.TrailLen)
	}
	if s.Inputs()["mass"] != 5.0 {
		t.Errorf("expected mass 5, got %v", s.Inputs()["mass"])
	}
	// Untouched inputs survive the rebuild.
	if s.Inputs()["springConstant"] != 10.0 {
		t.Errorf("expected springConstant 10, got %v", s.Inputs()["springConstant"])
	}
}

func TestSession_SetParamWaveType(t *testing.T) {
	m := NewManager(nil, nil)
	s, _ := m.Create("WaveVibration", nil)

	s.SetParam("waveType", "longitudinal")
	if s.Inputs()["waveType"] != "longitudinal" {
		t.Errorf("expected longitudinal, got %v", s.Inputs()["waveType"])
	}
}

func TestSession_ProjectileSelfCancel(t *testing.T) {
	pub := &capturePub{}
	m := NewManager(pub, nil)
	// Tiny velocity so flight completes in a few ticks. Flight time
	// 2*2*sin(45°)/9.8 ≈ 0.29s of sim time at 0.1s per tick, with the
	// ticker running every 100ms of wall time.
	s, _ := m.Create("ProjectileMotion", map[string]any{"velocity": 2.0, "timeStep": 0.1})

	s.Start()

	deadline := time.After(5 * time.Second)
	for s.State().IsRunning {
		select {
		case <-deadline:
			t.Fatal("projectile session did not self-cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}

	trail := s.Trail()
	if len(trail) == 0 {
		t.Fatal("expected retained trail")
	}
	last := trail[len(trail)-1]
	if last.Y > 0 {
		t.Errorf("expected impact frame retained with y <= 0, got %f", last.Y)
	}
	if pub.count("run.ended") != 1 {
		t.Errorf("expected 1 run.ended after self-cancel, got %d", pub.count("run.ended"))
	}
}

func TestSession_TrailCaps(t *testing.T) {
	tests := []struct {
		module string
		cap    int
	}{
		{"ProjectileMotion", 100},
		{"SpringOscillation", 20},
		{"PendulumMotion", 50},
		{"WaveVibration", 50},
	}
	for _, tt := range tests {
		if got := trailCap(motion.Kind(tt.module)); got != tt.cap {
			t.Errorf("%s: expected cap %d, got %d", tt.module, tt.cap, got)
		}
	}
}

func TestSession_TrailEviction(t *testing.T) {
	m := NewManager(nil, nil)
	s, _ := m.Create("SpringOscillation", nil)

	// Push straight through the ring to avoid slow wall-clock ticking.
	for i := 0; i < 30; i++ {
		s.trail.Push(core.Frame{Seq: uint(i + 1)})
	}

	trail := s.Trail()
	if len(trail) != 20 {
		t.Fatalf("expected trail capped at 20, got %d", len(trail))
	}
	if trail[0].Seq != 11 || trail[19].Seq != 30 {
		t.Errorf("expected frames 11..30, got %d..%d", trail[0].Seq, trail[19].Seq)
	}
}

func TestManager_Counts(t *testing.T) {
	m := NewManager(nil, nil)
	a, _ := m.Create("SpringOscillation", map[string]any{"timeStep": 0.01})
	m.Create("PendulumMotion", nil)

	a.Start()
	defer a.Stop()

	active, running := m.Counts()
	if active != 2 {
		t.Errorf("expected 2 active, got %d", active)
	}
	if running != 1 {
		t.Errorf("expected 1 running, got %d", running)
	}
}
