// Package cache holds small in-memory lookup structures shared between
// the session engine and the storage workers. Latency here is critical
// to quickly process incoming frames.
package cache

import (
	"sync"
)

// RunIndex maps session ids to the database run id assigned by the
// storage backend. Frames arrive keyed by session id and must be
// resolved to a run id before they can be persisted; a frame whose
// session is not indexed yet is requeued by the worker.
type RunIndex struct {
	m    sync.Mutex
	runs map[string]uint
}

func NewRunIndex() *RunIndex {
	return &RunIndex{
		runs: make(map[string]uint),
	}
}

// Set records the run id for a session, replacing any previous mapping.
func (c *RunIndex) Set(sessionID string, runID uint) {
	c.m.Lock()
	defer c.m.Unlock()
	c.runs[sessionID] = runID
}

// Get returns the run id for a session, if one has been assigned.
func (c *RunIndex) Get(sessionID string) (uint, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	id, ok := c.runs[sessionID]
	return id, ok
}

// Delete removes the mapping for a session once its run has ended.
func (c *RunIndex) Delete(sessionID string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.runs, sessionID)
}

// Len returns the number of sessions currently indexed.
func (c *RunIndex) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.runs)
}

// Reset drops all mappings.
func (c *RunIndex) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.runs = make(map[string]uint)
}

// SafeCounter is a thread-safe counter. The dispatcher counts dropped
// events with one so the monitor can read the total without OTel.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
