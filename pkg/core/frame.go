// pkg/core/frame.go
package core

import "time"

// Frame is one evaluated simulation state, captured per tick.
// SessionID is set at capture time; RunID is resolved by the worker
// once the run row exists.
type Frame struct {
	ID           uint      `json:"id,omitempty"`
	RunID        uint      `json:"runId,omitempty"`
	SessionID    string    `json:"sessionId"`
	Seq          uint      `json:"seq"`
	SimTime      float64   `json:"simTime"`
	Displacement float64   `json:"displacement"`
	Velocity     float64   `json:"velocity"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Regime       string    `json:"regime,omitempty"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// Classification records one classifier decision. RunID stays zero when
// the prompt never led to a session; SessionID lets the worker resolve it
// later once the run row exists.
type Classification struct {
	ID          uint      `json:"id,omitempty"`
	RunID       uint      `json:"runId,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	Prompt      string    `json:"prompt"`
	Module      string    `json:"module"` // empty when no module matched
	Source      string    `json:"source"` // "model" or "keyword"
	Explanation string    `json:"explanation"`
	LatencyMS   int64     `json:"latencyMs"`
	At          time.Time `json:"at"`
}
