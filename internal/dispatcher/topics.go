package dispatcher

// Pipeline topics. Sessions publish under these; the worker registers
// the matching handlers.
const (
	TopicFrameRecorded  = "frame.recorded"
	TopicRunStarted     = "run.started"
	TopicRunEnded       = "run.ended"
	TopicClassification = "classification.recorded"
	TopicPerformance    = "performance.sampled"
)
