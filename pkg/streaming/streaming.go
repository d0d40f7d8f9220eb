package streaming

import (
	"encoding/json"
	"time"

	"github.com/motionlab/kinema/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun       = "start_run"
	TypeEndRun         = "end_run"
	TypeFrame          = "frame"
	TypeClassification = "classification"
	TypePerformance    = "performance"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the receiver's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run metadata opening a stream.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// EndRunPayload closes a run on the receiver side.
type EndRunPayload struct {
	RunID   uint      `json:"runId"`
	EndedAt time.Time `json:"endedAt"`
	Frames  uint      `json:"frames"`
}

// FramesPayload carries a batch of frames for one or more runs.
type FramesPayload struct {
	Frames []core.Frame `json:"frames"`
}

// ClassificationPayload carries one classifier decision.
type ClassificationPayload struct {
	Classification *core.Classification `json:"classification"`
}

// PerformancePayload carries one service performance sample.
type PerformancePayload struct {
	Performance *core.Performance `json:"performance"`
}

// NewEnvelope marshals a payload into a typed envelope. Marshal errors
// only occur for payload types that cannot be represented as JSON, which
// none of the protocol payloads are.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
