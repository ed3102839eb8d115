package events

// Event enumerates high-level topics inside the engine.
type Event string

const (
	EventTaskSubmitted   Event = "task.submitted"
	EventTaskCompleted   Event = "task.completed"
	EventTaskFailed      Event = "task.failed"
	EventBatchProgress   Event = "batch.progress"
	EventTrainingEpisode Event = "training.episode"
)

// TaskTopic scopes an event to a single task so a submitter can follow
// only its own stream.
func TaskTopic(e Event, taskID string) Event {
	return e + ":" + Event(taskID)
}
