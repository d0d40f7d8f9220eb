// Package convert provides functions to convert between GORM models and
// core models.
package convert

import (
	"encoding/json"

	"github.com/motionlab/kinema/internal/geo"
	"github.com/motionlab/kinema/internal/model"
	"github.com/motionlab/kinema/pkg/core"
)

// RunToModel converts a core.Run to its GORM model.
func RunToModel(r *core.Run) model.Run {
	inputs, _ := json.Marshal(r.Inputs)
	m := model.Run{
		SessionID:  r.SessionID,
		Module:     r.Module,
		Inputs:     inputs,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		FrameCount: r.Frames,
	}
	m.ID = r.ID
	return m
}

// RunToCore converts a GORM Run back to a core.Run.
func RunToCore(m model.Run) core.Run {
	var inputs map[string]any
	if len(m.Inputs) > 0 {
		_ = json.Unmarshal(m.Inputs, &inputs)
	}
	r := core.Run{
		ID:         m.ID,
		SessionID:  m.SessionID,
		Module:     m.Module,
		Inputs:     inputs,
		StartedAt:  m.StartedAt,
		EndedAt:    m.EndedAt,
		Frames:     m.FrameCount,
	}
	if m.Scene != nil {
		// Lat/lon are not columns; a scene loaded from the database
		// carries its anchor only in the 3857 geometry.
		lat, lon := m.Scene.Latitude, m.Scene.Longitude
		if lat == 0 && lon == 0 {
			lon, lat = geo.Geodetic(m.Scene.Location)
		}
		r.Scene = &core.Scene{
			Name:       m.Scene.Name,
			OriginLat:  lat,
			OriginLon:  lon,
			AzimuthDeg: m.Scene.AzimuthDeg,
		}
	}
	return r
}

// FrameToModel converts a core.Frame to its GORM model.
func FrameToModel(f core.Frame) model.Frame {
	return model.Frame{
		RunID:        f.RunID,
		Seq:          f.Seq,
		SimTime:      f.SimTime,
		Displacement: f.Displacement,
		Velocity:     f.Velocity,
		X:            f.X,
		Y:            f.Y,
		Regime:       f.Regime,
		CapturedAt:   f.CapturedAt,
	}
}

// FrameToCore converts a GORM Frame back to a core.Frame.
func FrameToCore(m model.Frame) core.Frame {
	return core.Frame{
		ID:           m.ID,
		RunID:        m.RunID,
		Seq:          m.Seq,
		SimTime:      m.SimTime,
		Displacement: m.Displacement,
		Velocity:     m.Velocity,
		X:            m.X,
		Y:            m.Y,
		Regime:       m.Regime,
		CapturedAt:   m.CapturedAt,
	}
}

// ClassificationToModel converts a core.Classification to its GORM model.
func ClassificationToModel(c *core.Classification) model.Classification {
	m := model.Classification{
		Prompt:      c.Prompt,
		Module:      c.Module,
		Source:      c.Source,
		Explanation: c.Explanation,
		LatencyMS:   c.LatencyMS,
	}
	if c.RunID != 0 {
		runID := c.RunID
		m.RunID = &runID
	}
	return m
}

// ClassificationToCore converts a GORM Classification back to core.
func ClassificationToCore(m model.Classification) core.Classification {
	c := core.Classification{
		ID:          m.ID,
		Prompt:      m.Prompt,
		Module:      m.Module,
		Source:      m.Source,
		Explanation: m.Explanation,
		LatencyMS:   m.LatencyMS,
		At:          m.CreatedAt,
	}
	if m.RunID != nil {
		c.RunID = *m.RunID
	}
	return c
}

// PerformanceToModel converts a core.Performance sample to its GORM model.
func PerformanceToModel(p *core.Performance) model.Performance {
	return model.Performance{
		Time:            p.At,
		ActiveSessions:  p.ActiveSessions,
		RunningSessions: p.RunningSessions,
		Queues: model.QueueLengths{
			Frames:          clampUint16(p.Queues.Frames),
			Runs:            clampUint16(p.Queues.Runs),
			Classifications: clampUint16(p.Queues.Classifications),
		},
		CPUPercent:    p.CPUPercent,
		MemPercent:    p.MemPercent,
		Goroutines:    p.Goroutines,
		LastWriteMS:   p.LastWriteMS,
		FramesWritten: p.FramesWritten,
		EventsDropped: p.EventsDropped,
	}
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}
