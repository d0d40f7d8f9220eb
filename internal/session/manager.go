package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/motionlab/kinema/internal/motion"
	"github.com/motionlab/kinema/pkg/core"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = fmt.Errorf("session not found")

// ErrUnknownModule is returned when a module name is not one of the
// simulation modules.
var ErrUnknownModule = fmt.Errorf("unknown module")

// Manager is the registry of live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextID   int

	pub    Publisher
	logger *slog.Logger
	scene  *core.Scene
}

// NewManager creates a session registry. pub may be nil for offline use
// (the terminal client); sessions then tick without recording.
func NewManager(pub Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		pub:      pub,
		logger:   logger,
	}
}

// SetScene installs a geodetic anchor attached to the runs of every
// projectile session created afterwards. A nil scene leaves tracks in
// local meters.
func (m *Manager) SetScene(scene *core.Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scene = scene
}

// Create builds a session for the given module, merging the provided
// inputs over the module defaults.
func (m *Manager) Create(module string, inputs map[string]any) (*Session, error) {
	if !motion.Known(module) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("sess-%d", m.nextID)
	params := motion.FromInputs(motion.Kind(module), inputs)
	s := newSession(id, params, m.pub, m.logger)
	if params.Kind() == motion.KindProjectile {
		s.scene = m.scene
	}
	m.sessions[id] = s

	m.logger.Info("session created", "session", id, "module", module)
	return s, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns all sessions. Order is not guaranteed.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Remove stops a session and drops it from the registry.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.Stop()
	m.logger.Info("session removed", "session", id)
	return nil
}

// StopAll halts every session; used during shutdown.
func (m *Manager) StopAll() {
	for _, s := range m.List() {
		s.Stop()
	}
}

// Counts returns (total, running) session counts for monitoring.
func (m *Manager) Counts() (active, running int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active = len(m.sessions)
	for _, s := range m.sessions {
		if s.State().IsRunning {
			running++
		}
	}
	return active, running
}
