// Package websocket streams run data over WebSocket to a remote receiver.
// It implements storage.Backend but not storage.Uploadable.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/pkg/core"
	"github.com/motionlab/kinema/pkg/streaming"
)

// Backend streams frames, runs, and classifications to a receiver.
type Backend struct {
	conn      *connection
	cfg       config.WebsocketConfig
	nextRunID atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebsocketConfig) *Backend {
	return &Backend{
		conn: newConnection(slog.Default()),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket receiver.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.APIKey)
}

// Close disconnects from the WebSocket receiver.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Ready reports whether the connection is currently established.
func (b *Backend) Ready() bool {
	return b.conn.connected()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun assigns a local run ID, sends the run metadata, and waits for
// the receiver ack. The start message is cached for reconnect replay.
func (b *Backend) StartRun(r *core.Run) error {
	r.ID = uint(b.nextRunID.Add(1))

	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: r})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for the receiver ack.
func (b *Backend) EndRun(runID uint, endedAt time.Time, frames uint) error {
	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{
		RunID:   runID,
		EndedAt: endedAt,
		Frames:  frames,
	})
	if err != nil {
		return err
	}

	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// RecordFrames streams a frame batch (fire-and-forget).
func (b *Backend) RecordFrames(frames []core.Frame) error {
	return b.sendEnvelope(streaming.TypeFrame, streaming.FramesPayload{Frames: frames})
}

// RecordClassification streams a classifier decision (fire-and-forget).
func (b *Backend) RecordClassification(c *core.Classification) error {
	return b.sendEnvelope(streaming.TypeClassification, streaming.ClassificationPayload{Classification: c})
}

// RecordPerformance streams a service health sample (fire-and-forget).
func (b *Backend) RecordPerformance(p *core.Performance) error {
	return b.sendEnvelope(streaming.TypePerformance, streaming.PerformancePayload{Performance: p})
}
