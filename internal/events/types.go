package events

import "time"

// Event is the base interface for everything the bus carries.
type Event interface {
	EventType() string
	Task() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicRun  = "run"
)

// Event type constants
const (
	EventTypeTaskStarted  = "task.started"
	EventTypeTaskFinished = "task.finished"
	EventTypeRunProgress  = "run.progress"
	EventTypeRunFinished  = "run.finished"
)

// TaskStartedEvent is published when a task's worker launches.
type TaskStartedEvent struct {
	Name string
	At   time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) Task() string      { return e.Name }

// TaskFinishedEvent is published when a task's worker completes.
type TaskFinishedEvent struct {
	Name     string
	Failed   bool
	Err      error
	Duration time.Duration
	At       time.Time
}

func (e TaskFinishedEvent) EventType() string { return EventTypeTaskFinished }
func (e TaskFinishedEvent) Task() string      { return e.Name }

// RunProgressEvent carries per-status tallies after each completion.
type RunProgressEvent struct {
	Total   int
	Waiting int
	Running int
	Success int
	Failure int
	At      time.Time
}

func (e RunProgressEvent) EventType() string { return EventTypeRunProgress }
func (e RunProgressEvent) Task() string      { return "" }

// RunFinishedEvent is published exactly once, when the run first reaches a
// terminal outcome.
type RunFinishedEvent struct {
	Success bool
	At      time.Time
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }
func (e RunFinishedEvent) Task() string      { return "" }
