package scheduler

import "github.com/aristath/taskui/internal/capture"

// TaskStatus is the derived state of a task. It is never stored: the executor
// computes it from the worker's {started, finished, failed} record so no two
// call sites can disagree at a race boundary.
type TaskStatus int

const (
	StatusWaiting TaskStatus = iota // Not started; dependencies unmet or blocked
	StatusRunning                   // Worker goroutine active
	StatusSuccess                   // Finished without error
	StatusFailure                   // Finished with captured error
)

func (s TaskStatus) String() string {
	switch s {
	case StatusWaiting:
		return "Waiting"
	case StatusRunning:
		return "Running"
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	}
	return "Unknown"
}

// Body is a task's invocable work. It receives the execution context whose
// writer and logger capture everything the body produces. Arguments are bound
// at construction by closing over them.
type Body func(tc *capture.Context) error

// Task is an immutable named unit of work. Two tasks are the same task iff
// their names are equal; a graph never holds two distinct tasks with one name.
type Task struct {
	Name string
	Body Body
}

// NewTask builds a task from a name and a body.
func NewTask(name string, body Body) *Task {
	return &Task{Name: name, Body: body}
}
