// pkg/core/perf.go
package core

import "time"

// QueueLengths holds the write-queue depths at sample time.
type QueueLengths struct {
	Frames          int `json:"frames"`
	Runs            int `json:"runs"`
	Classifications int `json:"classifications"`
}

// Performance is one service health sample.
type Performance struct {
	At              time.Time    `json:"at"`
	ActiveSessions  int          `json:"activeSessions"`
	RunningSessions int          `json:"runningSessions"`
	Queues          QueueLengths `json:"queues"`
	CPUPercent      float64      `json:"cpuPercent"`
	MemPercent      float64      `json:"memPercent"`
	Goroutines      int          `json:"goroutines"`
	LastWriteMS     float64      `json:"lastWriteMs"`
	FramesWritten   uint64       `json:"framesWritten"`
	EventsDropped   int          `json:"eventsDropped"`
}
