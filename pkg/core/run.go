// pkg/core/run.go
package core

import "time"

// Run represents one recorded simulation session.
type Run struct {
	ID        uint           `json:"id,omitempty"`
	SessionID string         `json:"sessionId"`
	Module    string         `json:"module"`
	Inputs    map[string]any `json:"inputs"`
	Scene     *Scene         `json:"scene,omitempty"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
	Frames    uint           `json:"frames"`
}

// Scene is an optional geodetic anchor for a run, used to project
// projectile ground tracks onto real-world coordinates.
type Scene struct {
	Name       string  `json:"name"`
	OriginLat  float64 `json:"originLat"`
	OriginLon  float64 `json:"originLon"`
	AzimuthDeg float64 `json:"azimuthDeg"`
}

// RunEnd marks the close of a session's run. The session layer does not
// know database run ids; the worker resolves SessionID through its index.
type RunEnd struct {
	SessionID string    `json:"sessionId"`
	EndedAt   time.Time `json:"endedAt"`
	Frames    uint      `json:"frames"`
}

// Recording is the export shape for a completed run.
type Recording struct {
	Run            Run             `json:"run"`
	Frames         []Frame         `json:"frames"`
	Classification *Classification `json:"classification,omitempty"`
	TrackWKT       string          `json:"trackWkt,omitempty"`
}

// UploadMetadata describes an exported recording for archive upload.
type UploadMetadata struct {
	Filename string `json:"filename"`
	Module   string `json:"module"`
	Frames   uint   `json:"frames"`
}
