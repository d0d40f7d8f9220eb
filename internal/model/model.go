package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent
// tables in the database schema.
var DatabaseModels = []interface{}{
	&ServiceInfo{},
	&Scene{},
	&Run{},
	&Frame{},
	&Classification{},
	&Performance{},
}

// ServiceInfo contains instance information about this deployment.
type ServiceInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"websiteURL" gorm:"size:255"`
}

func (*ServiceInfo) TableName() string {
	return "service_infos"
}

// Scene is an optional geodetic anchor a run can be tied to, used when
// exporting projectile ground tracks for map overlay.
type Scene struct {
	gorm.Model
	Name       string     `json:"name" gorm:"size:127"`
	Latitude   float64    `json:"latitude" gorm:"-"`
	Longitude  float64    `json:"longitude" gorm:"-"`
	Location   geom.Point `json:"location"`
	AzimuthDeg float64    `json:"azimuthDeg"`
	Runs       []Run
}

func (*Scene) TableName() string {
	return "scenes"
}

// GetOrInsert looks the scene up by name, inserting it when absent.
func (s *Scene) GetOrInsert(db *gorm.DB) (created bool, err error) {
	var existing Scene
	err = db.Where("name = ?", s.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(s).Error
			return true, err
		}
		return false, err
	}
	*s = existing
	return false, nil
}

// Run is the main model for a recorded simulation session.
type Run struct {
	gorm.Model
	SessionID      string         `json:"sessionId" gorm:"size:64;index:idx_run_session"`
	Module         string         `json:"module" gorm:"size:64"`
	Inputs         datatypes.JSON `json:"inputs"`
	StartedAt      time.Time      `json:"startedAt" gorm:"type:timestamptz;index:idx_run_start"`
	EndedAt        *time.Time     `json:"endedAt" gorm:"type:timestamptz"`
	FrameCount     uint           `json:"frameCount"`
	SceneID        *uint          `json:"-"`
	Scene          *Scene         `gorm:"foreignkey:SceneID"`
	ServiceVersion string         `json:"serviceVersion" gorm:"size:64;default:1.0.0"`

	Frames          []Frame
	Classifications []Classification
}

func (*Run) TableName() string {
	return "runs"
}

// Frame is one evaluated simulation state inside a run.
type Frame struct {
	ID           uint      `json:"-" gorm:"primarykey"`
	RunID        uint      `json:"runId" gorm:"index:idx_frame_run"`
	Seq          uint      `json:"seq"`
	SimTime      float64   `json:"simTime"`
	Displacement float64   `json:"displacement"`
	Velocity     float64   `json:"velocity"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Regime       string    `json:"regime,omitempty" gorm:"size:32"`
	CapturedAt   time.Time `json:"capturedAt" gorm:"type:timestamptz"`
}

func (*Frame) TableName() string {
	return "frames"
}

// Classification records one classifier decision, linked to a run when
// the prompt led to a session.
type Classification struct {
	gorm.Model
	RunID       *uint  `json:"runId"`
	Prompt      string `json:"prompt" gorm:"size:2000"`
	Module      string `json:"module" gorm:"size:64"`
	Source      string `json:"source" gorm:"size:16"`
	Explanation string `json:"explanation" gorm:"size:2000"`
	LatencyMS   int64  `json:"latencyMs"`
}

func (*Classification) TableName() string {
	return "classifications"
}

// Performance is the model for service performance samples.
type Performance struct {
	Time            time.Time    `json:"time" gorm:"type:timestamptz;index:idx_perf_time"`
	ActiveSessions  int          `json:"activeSessions"`
	RunningSessions int          `json:"runningSessions"`
	Queues          QueueLengths `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	CPUPercent      float64      `json:"cpuPercent"`
	MemPercent      float64      `json:"memPercent"`
	Goroutines      int          `json:"goroutines"`
	LastWriteMS     float64      `json:"lastWriteMs"`
	FramesWritten   uint64       `json:"framesWritten"`
	EventsDropped   int          `json:"eventsDropped"`
}

func (*Performance) TableName() string {
	return "performances"
}

// QueueLengths is the model for the write queue lengths.
type QueueLengths struct {
	Frames          uint16 `json:"frames"`
	Runs            uint16 `json:"runs"`
	Classifications uint16 `json:"classifications"`
}
