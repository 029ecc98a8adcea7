package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aristath/taskui/internal/capture"
)

// Worker is the per-task execution record. Exactly one exists per task,
// created at executor construction, before anything starts. Its lifecycle
// fields are written only under its own mutex: started by the scheduling
// section, finished/err/trace by the worker's own goroutine.
type Worker struct {
	task *Task
	ctx  *capture.Context

	mu       sync.Mutex
	started  bool
	finished bool
	err      error
	trace    string
	startAt  time.Time
	endAt    time.Time
}

func newWorker(task *Task, ctx *capture.Context) *Worker {
	return &Worker{task: task, ctx: ctx}
}

// Task returns the task this worker services.
func (w *Worker) Task() *Task { return w.task }

// Context returns the worker's execution context.
func (w *Worker) Context() *capture.Context { return w.ctx }

// Status derives the task status from the lifecycle record. A worker that
// was never started is Waiting even after the run has otherwise settled.
func (w *Worker) Status() TaskStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case !w.started:
		return StatusWaiting
	case !w.finished:
		return StatusRunning
	case w.err != nil:
		return StatusFailure
	default:
		return StatusSuccess
	}
}

// Failure returns the captured error and trace, if the worker failed. The
// trace is non-empty only for panics; plain errors carry their own text.
func (w *Worker) Failure() (error, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err, w.trace
}

// Duration reports how long the worker ran, or has been running.
func (w *Worker) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case !w.started:
		return 0
	case !w.finished:
		return time.Since(w.startAt)
	default:
		return w.endAt.Sub(w.startAt)
	}
}

// markStarted flips the started flag. Called only from inside the executor's
// scheduling section, before the goroutine is launched.
func (w *Worker) markStarted() {
	w.mu.Lock()
	w.started = true
	w.startAt = time.Now()
	w.mu.Unlock()
}

// run executes the task body, captures any failure on the record, and
// signals completion. A panic in the body is contained here: it flips this
// worker to Failure and never reaches the scheduler or sibling workers.
func (w *Worker) run(completions chan<- *Worker) {
	err, trace := w.invoke()

	w.mu.Lock()
	w.finished = true
	w.err = err
	w.trace = trace
	w.endAt = time.Now()
	w.mu.Unlock()

	if err != nil {
		w.ctx.Log().Error("task failed", zap.Error(err))
	}
	completions <- w
}

func (w *Worker) invoke() (err error, trace string) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", w.task.Name, r)
			trace = string(debug.Stack())
		}
	}()
	err = w.task.Body(w.ctx)
	return err, ""
}
