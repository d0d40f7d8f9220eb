// Package session owns the live simulation state. Each session holds
// one parameter set and advances on its own ticker; every mutation goes
// through the session mutex, so a parameter change and a timer tick
// never interleave.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/motion"
	"github.com/motionlab/kinema/internal/queue"
	"github.com/motionlab/kinema/pkg/core"
)

// Publisher is the slice of the dispatcher the session layer needs.
type Publisher interface {
	Publish(topic string, payload any) (any, error)
}

// State is the externally visible session snapshot.
type State struct {
	Time      float64 `json:"time"`
	IsRunning bool    `json:"isRunning"`
	TrailLen  int     `json:"trailLength"`
}

// trailCap returns the bounded trail size for a module.
func trailCap(k motion.Kind) int {
	switch k {
	case motion.KindProjectile:
		return 100
	case motion.KindSpring:
		return 20
	default:
		return 50
	}
}

// Session is one live simulation.
type Session struct {
	mu sync.Mutex

	id      string
	params  motion.Params
	t       float64
	seq     uint
	running bool
	stopCh  chan struct{}
	trail   *queue.Ring[core.Frame]
	// Geodetic anchor for the run's ground track; projectile sessions
	// only, nil when no origin is configured.
	scene *core.Scene

	pub    Publisher
	logger *slog.Logger
}

func newSession(id string, params motion.Params, pub Publisher, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		params: params,
		trail:  queue.NewRing[core.Frame](trailCap(params.Kind())),
		pub:    pub,
		logger: logger,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Module returns the module name the session simulates.
func (s *Session) Module() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.params.Kind())
}

// Inputs returns the current parameter set as a wire input map.
func (s *Session) Inputs() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return motion.Inputs(s.params)
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Time: s.t, IsRunning: s.running, TrailLen: s.trail.Len()}
}

// Trail returns the retained frames oldest-first.
func (s *Session) Trail() []core.Frame {
	return s.trail.Items()
}

// Start begins ticking. Starting a running session is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	interval := time.Duration(s.params.Step() * float64(time.Second))
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	stopCh := s.stopCh
	run := &core.Run{
		SessionID: s.id,
		Module:    string(s.params.Kind()),
		Inputs:    motion.Inputs(s.params),
		Scene:     s.scene,
		StartedAt: time.Now(),
	}
	s.mu.Unlock()

	s.publish(dispatcher.TopicRunStarted, run)

	go s.loop(interval, stopCh)
}

// Stop halts ticking. Stopping a halted session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	end := core.RunEnd{SessionID: s.id, EndedAt: time.Now(), Frames: s.seq}
	s.mu.Unlock()

	s.publish(dispatcher.TopicRunEnded, end)
}

// SetParam halts the session, resets simulation time to zero, clears the
// trail, and then applies the new value. Numeric values update in place;
// string values (waveType) rebuild the parameter set.
func (s *Session) SetParam(name string, value any) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.t = 0
	s.seq = 0
	s.trail.Clear()

	switch v := value.(type) {
	case float64:
		s.params = motion.SetInput(s.params, name, v)
	case int:
		s.params = motion.SetInput(s.params, name, float64(v))
	default:
		inputs := motion.Inputs(s.params)
		inputs[name] = value
		s.params = motion.FromInputs(s.params.Kind(), inputs)
	}
}

// loop drives the ticker until stopped or, for projectiles, until ground
// impact. The impact frame is retained before the session cancels itself.
func (s *Session) loop(interval time.Duration, stopCh chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if done := s.step(); done {
				s.Stop()
				return
			}
		}
	}
}

// step advances time by one tick and records the resulting frame.
func (s *Session) step() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.t += s.params.Step()
	eval := motion.Evaluate(s.params, s.t)
	s.seq++
	frame := core.Frame{
		SessionID:    s.id,
		Seq:          s.seq,
		SimTime:      s.t,
		Displacement: eval.Displacement,
		Velocity:     eval.Velocity,
		X:            eval.X,
		Y:            eval.Y,
		Regime:       string(eval.Regime),
		CapturedAt:   time.Now(),
	}
	s.trail.Push(frame)
	s.mu.Unlock()

	s.publish(dispatcher.TopicFrameRecorded, frame)

	return eval.Grounded
}

func (s *Session) publish(topic string, payload any) {
	if s.pub == nil {
		return
	}
	if _, err := s.pub.Publish(topic, payload); err != nil {
		s.logger.Debug("publish failed", "topic", topic, "session", s.id, "error", err)
	}
}
