package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/aristath/taskui/internal/capture"
	"github.com/aristath/taskui/internal/events"
)

// Options configures an Executor.
type Options struct {
	// MaxWorkers caps concurrent workers. Zero or negative means unbounded:
	// every ready task starts immediately, so peak concurrency equals the
	// graph's widest antichain.
	MaxWorkers int64

	// OnFinish is invoked exactly once, asynchronously, when the run first
	// reaches a terminal outcome: true iff every task succeeded, false as
	// soon as any task fails. Nil is fine and does not affect scheduling.
	OnFinish func(success bool)

	// Bus, when set, receives task lifecycle and run progress events.
	Bus *events.Bus

	// Logger overrides the driver logger. Defaults to the registry's main
	// context logger so driver records stay queryable alongside task records.
	Logger *zap.Logger
}

// Executor runs a validated TaskGraph: one worker per task, started when its
// dependencies all reach Success. Completions feed a single scheduling loop
// over a channel; the loop and Start share one mutex around readiness
// recomputation so two completions racing into readiness can never
// double-start a task.
type Executor struct {
	graph   *TaskGraph
	reg     *capture.Registry
	workers map[string]*Worker
	opts    Options
	sem     *semaphore.Weighted
	log     *zap.Logger

	mu         sync.Mutex // guards dispatch: started marking and settle check
	running    bool
	completed  chan *Worker
	done       chan struct{}
	doneOnce   sync.Once
	finishOnce sync.Once
}

// NewExecutor builds an executor for the graph. Worker records and execution
// contexts for every task are created here, before anything runs.
func NewExecutor(graph *TaskGraph, opts Options) *Executor {
	reg := capture.NewRegistry()
	tasks := graph.Tasks()

	e := &Executor{
		graph:     graph,
		reg:       reg,
		workers:   make(map[string]*Worker, len(tasks)),
		opts:      opts,
		completed: make(chan *Worker, len(tasks)),
		done:      make(chan struct{}),
	}
	for _, t := range tasks {
		e.workers[t.Name] = newWorker(t, reg.NewContext(t.Name))
	}
	if opts.MaxWorkers > 0 {
		e.sem = semaphore.NewWeighted(opts.MaxWorkers)
	}
	e.log = opts.Logger
	if e.log == nil {
		e.log = reg.Main().Log()
	}
	return e
}

// Registry exposes the capture registry, whose main context is the driver's.
func (e *Executor) Registry() *capture.Registry { return e.reg }

// Start validates the graph, launches the initial ready set and the
// scheduling loop, and returns without waiting for any task. A cyclic graph
// refuses to run: the error wraps ErrGraphCycle and carries the path.
func (e *Executor) Start() error {
	if err := e.graph.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.running = true
	started := e.dispatchLocked()
	settled := e.settledLocked()
	e.mu.Unlock()

	e.log.Info("execution started",
		zap.Int("tasks", len(e.workers)),
		zap.Int("initial", started))

	go e.loop()
	e.publishProgress()

	if settled {
		// Empty graph: terminal immediately, vacuously successful.
		e.finish(true)
		e.settle()
	}
	return nil
}

// Done is closed once no task is running and none can ever become ready.
// Tasks blocked behind a failed dependency stay Waiting forever; Done still
// closes.
func (e *Executor) Done() <-chan struct{} { return e.done }

// Status derives the task's status from its worker record.
func (e *Executor) Status(t *Task) TaskStatus {
	return e.workers[t.Name].Status()
}

// Output returns a snapshot of everything the task body has written so far.
// Safe to call mid-run.
func (e *Executor) Output(t *Task) string {
	return e.workers[t.Name].Context().Output()
}

// LogRecords returns the task's structured log records in emission order.
func (e *Executor) LogRecords(t *Task) []capture.Record {
	return e.reg.Records(t.Name)
}

// MainLogRecords returns the driver context's records, never mixed with any
// task's.
func (e *Executor) MainLogRecords() []capture.Record {
	return e.reg.Records(capture.MainContext)
}

// Failure returns the captured error and trace for a failed task.
func (e *Executor) Failure(t *Task) (error, string) {
	return e.workers[t.Name].Failure()
}

// Worker returns the execution record for a task.
func (e *Executor) Worker(t *Task) *Worker {
	return e.workers[t.Name]
}

// AllSucceeded reports whether every listed task is Success. With no
// arguments it covers the whole graph.
func (e *Executor) AllSucceeded(tasks ...*Task) bool {
	if len(tasks) == 0 {
		tasks = e.graph.Tasks()
	}
	for _, t := range tasks {
		if e.workers[t.Name].Status() != StatusSuccess {
			return false
		}
	}
	return true
}

// depsSucceeded reports whether all direct dependencies of t are Success.
// A task with no dependencies is trivially ready.
func (e *Executor) depsSucceeded(t *Task) bool {
	for _, dep := range e.graph.WaitsFor(t) {
		if e.workers[dep.Name].Status() != StatusSuccess {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any task in the graph is Failure.
func (e *Executor) AnyFailed() bool {
	for _, w := range e.workers {
		if w.Status() == StatusFailure {
			return true
		}
	}
	return false
}

// Counts tallies tasks per status for progress display.
func (e *Executor) Counts() (waiting, running, success, failure int) {
	for _, w := range e.workers {
		switch w.Status() {
		case StatusWaiting:
			waiting++
		case StatusRunning:
			running++
		case StatusSuccess:
			success++
		case StatusFailure:
			failure++
		}
	}
	return waiting, running, success, failure
}

// loop is the single scheduling loop. Each worker completion is consumed in
// order: terminal outcome check first, then readiness recomputation.
func (e *Executor) loop() {
	for {
		select {
		case w := <-e.completed:
			e.onWorkerFinished(w)
		case <-e.done:
			return
		}
	}
}

func (e *Executor) onWorkerFinished(w *Worker) {
	if e.sem != nil {
		e.sem.Release(1)
	}

	status := w.Status()
	if err, _ := w.Failure(); err != nil {
		e.log.Warn("task failed",
			zap.String("task", w.Task().Name),
			zap.Error(err),
			zap.Duration("duration", w.Duration()))
	} else {
		e.log.Info("task finished",
			zap.String("task", w.Task().Name),
			zap.Duration("duration", w.Duration()))
	}
	e.publishTaskFinished(w, status)

	if e.AnyFailed() {
		e.finish(false)
	} else if e.AllSucceeded() {
		e.finish(true)
	}

	e.mu.Lock()
	e.dispatchLocked()
	settled := e.settledLocked()
	e.mu.Unlock()

	e.publishProgress()
	if settled {
		e.settle()
	}
}

// dispatchLocked starts every ready task: still Waiting, all direct
// dependencies Success, and (when bounded) a worker slot available. The
// started flag flips before the mutex is released, so a concurrent pass can
// never see the task as startable again. Returns how many were started.
func (e *Executor) dispatchLocked() int {
	started := 0
	for _, t := range e.graph.Tasks() {
		w := e.workers[t.Name]
		if w.Status() != StatusWaiting {
			continue
		}
		if !e.depsSucceeded(t) {
			continue
		}
		if e.sem != nil && !e.sem.TryAcquire(1) {
			// At capacity; a completion will re-run dispatch.
			break
		}
		w.markStarted()
		started++
		e.publishTaskStarted(w)
		go w.run(e.completed)
	}
	return started
}

// settledLocked reports whether the run can make no further progress:
// nothing running and nothing ready. Tasks left Waiting at that point are
// permanently blocked behind a failure.
func (e *Executor) settledLocked() bool {
	for _, t := range e.graph.Tasks() {
		switch e.workers[t.Name].Status() {
		case StatusRunning:
			return false
		case StatusWaiting:
			if e.depsSucceeded(t) {
				return false
			}
		}
	}
	return true
}

// finish fires the terminal callback at most once across all completion
// events, and dispatches it off the scheduling path.
func (e *Executor) finish(success bool) {
	e.finishOnce.Do(func() {
		e.log.Info("run finished", zap.Bool("success", success))
		if e.opts.Bus != nil {
			e.opts.Bus.Publish(events.TopicRun, events.RunFinishedEvent{
				Success: success,
				At:      time.Now(),
			})
		}
		if cb := e.opts.OnFinish; cb != nil {
			go cb(success)
		}
	})
}

func (e *Executor) settle() {
	e.doneOnce.Do(func() { close(e.done) })
}

func (e *Executor) publishTaskStarted(w *Worker) {
	if e.opts.Bus == nil {
		return
	}
	e.opts.Bus.Publish(events.TopicTask, events.TaskStartedEvent{
		Name: w.Task().Name,
		At:   time.Now(),
	})
}

func (e *Executor) publishTaskFinished(w *Worker, status TaskStatus) {
	if e.opts.Bus == nil {
		return
	}
	err, _ := w.Failure()
	e.opts.Bus.Publish(events.TopicTask, events.TaskFinishedEvent{
		Name:     w.Task().Name,
		Failed:   status == StatusFailure,
		Err:      err,
		Duration: w.Duration(),
		At:       time.Now(),
	})
}

func (e *Executor) publishProgress() {
	if e.opts.Bus == nil {
		return
	}
	waiting, running, success, failure := e.Counts()
	e.opts.Bus.Publish(events.TopicRun, events.RunProgressEvent{
		Total:   len(e.workers),
		Waiting: waiting,
		Running: running,
		Success: success,
		Failure: failure,
		At:      time.Now(),
	})
}
