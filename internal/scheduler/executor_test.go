package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/taskui/internal/capture"
	"github.com/aristath/taskui/internal/events"
)

func waitDone(t *testing.T, e *Executor) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("executor did not settle")
	}
}

// TestAllTasksReachTerminal verifies liveness: every task in an acyclic
// graph ends Success.
func TestAllTasksReachTerminal(t *testing.T) {
	a, b, c, d := task("A"), task("B"), task("C"), task("D")
	g := NewTaskGraph()
	mustAdd(t, g, a)
	mustAdd(t, g, b, a)
	mustAdd(t, g, c, a)
	mustAdd(t, g, d, b, c)

	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	for _, tk := range g.Tasks() {
		if got := e.Status(tk); got != StatusSuccess {
			t.Errorf("task %s: expected Success, got %v", tk.Name, got)
		}
	}
	if !e.AllSucceeded() {
		t.Error("AllSucceeded should be true")
	}
	if e.AnyFailed() {
		t.Error("AnyFailed should be false")
	}
}

// TestDependencyOrdering verifies a task never runs before its dependencies
// succeed, using a linear chain instrumented with ordering side effects.
func TestDependencyOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) Body {
		return func(*capture.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	a := NewTask("A", record("A"))
	b := NewTask("B", record("B"))
	c := NewTask("C", record("C"))
	g, err := Linear(a, b, c)
	if err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"A", "B", "C"}
	if len(order) != 3 {
		t.Fatalf("expected 3 runs, got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("chain ran out of order: %v", order)
		}
	}
}

// TestCyclicGraphRefusesToRun verifies Start fails with the cycle path and
// nothing starts.
func TestCyclicGraphRefusesToRun(t *testing.T) {
	var ran atomic.Int32
	body := func(*capture.Context) error {
		ran.Add(1)
		return nil
	}
	a := NewTask("A", body)
	b := NewTask("B", body)
	g := NewTaskGraph()
	mustAdd(t, g, a)
	mustAdd(t, g, b, a)
	mustAdd(t, g, a, b)

	e := NewExecutor(g, Options{})
	err := e.Start()
	if !errors.Is(err, ErrGraphCycle) {
		t.Fatalf("expected ErrGraphCycle, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if ran.Load() != 0 {
		t.Errorf("tasks ran despite cycle: %d", ran.Load())
	}
}

// TestFailureContainment verifies that a failed dependency leaves its
// dependents Waiting forever while unrelated paths still run.
func TestFailureContainment(t *testing.T) {
	boom := NewTask("boom", func(*capture.Context) error {
		return fmt.Errorf("exploded")
	})
	blocked := task("blocked")
	unrelated := task("unrelated")

	g := NewTaskGraph()
	mustAdd(t, g, boom)
	mustAdd(t, g, blocked, boom)
	mustAdd(t, g, unrelated)

	var success atomic.Bool
	var fired atomic.Int32
	e := NewExecutor(g, Options{OnFinish: func(ok bool) {
		success.Store(ok)
		fired.Add(1)
	}})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)
	time.Sleep(50 * time.Millisecond) // callback dispatches asynchronously

	if got := e.Status(boom); got != StatusFailure {
		t.Errorf("boom: expected Failure, got %v", got)
	}
	if got := e.Status(blocked); got != StatusWaiting {
		t.Errorf("blocked: expected permanent Waiting, got %v", got)
	}
	if got := e.Status(unrelated); got != StatusSuccess {
		t.Errorf("unrelated: expected Success, got %v", got)
	}
	if fired.Load() != 1 {
		t.Errorf("terminal callback fired %d times", fired.Load())
	}
	if success.Load() {
		t.Error("terminal callback reported success for a failed run")
	}

	err, _ := e.Failure(boom)
	if err == nil || !strings.Contains(err.Error(), "exploded") {
		t.Errorf("captured failure wrong: %v", err)
	}
}

// TestPanicContained verifies a panicking body becomes a Failure with a
// trace instead of crashing the process.
func TestPanicContained(t *testing.T) {
	p := NewTask("panics", func(*capture.Context) error {
		panic("kaboom")
	})
	g := NewTaskGraph()
	mustAdd(t, g, p)

	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	if got := e.Status(p); got != StatusFailure {
		t.Fatalf("expected Failure, got %v", got)
	}
	err, trace := e.Failure(p)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("panic not captured: %v", err)
	}
	if trace == "" {
		t.Error("panic trace not captured")
	}
}

// TestNoDuplicateStart verifies the diamond race: D starts exactly once even
// when B and C complete near-simultaneously.
func TestNoDuplicateStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		var dRuns atomic.Int32
		a := task("A")
		b := NewTask("B", func(*capture.Context) error {
			time.Sleep(time.Millisecond)
			return nil
		})
		c := NewTask("C", func(*capture.Context) error {
			time.Sleep(time.Millisecond)
			return nil
		})
		d := NewTask("D", func(*capture.Context) error {
			dRuns.Add(1)
			return nil
		})

		g := NewTaskGraph()
		mustAdd(t, g, a)
		mustAdd(t, g, b, a)
		mustAdd(t, g, c, a)
		mustAdd(t, g, d, b, c)

		e := NewExecutor(g, Options{})
		if err := e.Start(); err != nil {
			t.Fatal(err)
		}
		waitDone(t, e)

		if got := dRuns.Load(); got != 1 {
			t.Fatalf("iteration %d: D ran %d times", i, got)
		}
	}
}

// TestTerminalCallbackSuccessOnce verifies exactly one success invocation.
func TestTerminalCallbackSuccessOnce(t *testing.T) {
	var fired atomic.Int32
	var success atomic.Bool

	a, b := task("A"), task("B")
	g := NewTaskGraph()
	mustAdd(t, g, a)
	mustAdd(t, g, b)

	e := NewExecutor(g, Options{OnFinish: func(ok bool) {
		success.Store(ok)
		fired.Add(1)
	}})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)
	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 1 {
		t.Errorf("callback fired %d times", fired.Load())
	}
	if !success.Load() {
		t.Error("callback reported failure for a clean run")
	}
}

// TestTerminalCallbackOnceWithConcurrentFailures verifies racing failures
// cannot double-fire.
func TestTerminalCallbackOnceWithConcurrentFailures(t *testing.T) {
	var fired atomic.Int32
	fail := func(*capture.Context) error { return fmt.Errorf("no") }

	g := NewTaskGraph()
	for i := 0; i < 8; i++ {
		mustAdd(t, g, NewTask(fmt.Sprintf("f%d", i), fail))
	}

	e := NewExecutor(g, Options{OnFinish: func(bool) { fired.Add(1) }})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)
	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 1 {
		t.Errorf("callback fired %d times", fired.Load())
	}
}

// TestNoCallbackRegistered verifies scheduling is unaffected without one.
func TestNoCallbackRegistered(t *testing.T) {
	a, b := task("A"), task("B")
	g, err := Linear(a, b)
	if err != nil {
		t.Fatal(err)
	}
	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)
	if !e.AllSucceeded() {
		t.Error("run did not complete without a callback")
	}
}

// TestOutputIsolationBetweenTasks verifies concurrent writers never cross.
func TestOutputIsolationBetweenTasks(t *testing.T) {
	writer := func(ch string) Body {
		return func(tc *capture.Context) error {
			for i := 0; i < 200; i++ {
				fmt.Fprint(tc, ch)
			}
			return nil
		}
	}
	t1 := NewTask("t1", writer("A"))
	t2 := NewTask("t2", writer("B"))

	g := NewTaskGraph()
	mustAdd(t, g, t1)
	mustAdd(t, g, t2)

	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	if out := e.Output(t1); strings.Trim(out, "A") != "" || len(out) != 200 {
		t.Errorf("t1 output contaminated: %d bytes", len(out))
	}
	if out := e.Output(t2); strings.Trim(out, "B") != "" || len(out) != 200 {
		t.Errorf("t2 output contaminated: %d bytes", len(out))
	}
}

// TestLogRecordsPerTask verifies records file under the emitting task and
// the driver context stays separate.
func TestLogRecordsPerTask(t *testing.T) {
	chatty := NewTask("chatty", func(tc *capture.Context) error {
		tc.Log().Info("step one")
		tc.Log().Info("step two")
		return nil
	})
	quiet := task("quiet")

	g := NewTaskGraph()
	mustAdd(t, g, chatty)
	mustAdd(t, g, quiet)

	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	recs := e.LogRecords(chatty)
	if len(recs) != 2 || recs[0].Message != "step one" || recs[1].Message != "step two" {
		t.Errorf("chatty records wrong: %+v", recs)
	}
	if got := e.LogRecords(quiet); len(got) != 0 {
		t.Errorf("quiet task has stray records: %+v", got)
	}
	// Driver records (start/finish logging) never mix with task records.
	for _, r := range e.MainLogRecords() {
		if r.Context != capture.MainContext {
			t.Errorf("driver record filed under %q", r.Context)
		}
	}
}

// TestMidRunQueries verifies status and output queries are safe while a
// task is still running.
func TestMidRunQueries(t *testing.T) {
	release := make(chan struct{})
	slow := NewTask("slow", func(tc *capture.Context) error {
		fmt.Fprint(tc, "partial")
		<-release
		return nil
	})
	g := NewTaskGraph()
	mustAdd(t, g, slow)

	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for e.Output(slow) != "partial" {
		select {
		case <-deadline:
			t.Fatal("task output never appeared")
		case <-time.After(time.Millisecond):
		}
	}
	if got := e.Status(slow); got != StatusRunning {
		t.Errorf("expected Running mid-body, got %v", got)
	}

	close(release)
	waitDone(t, e)
	if got := e.Status(slow); got != StatusSuccess {
		t.Errorf("expected Success, got %v", got)
	}
}

// TestBoundedWorkers verifies the MaxWorkers admission gate caps peak
// concurrency without changing the outcome.
func TestBoundedWorkers(t *testing.T) {
	var active, peak atomic.Int32
	body := func(*capture.Context) error {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}

	g := NewTaskGraph()
	for i := 0; i < 6; i++ {
		mustAdd(t, g, NewTask(fmt.Sprintf("t%d", i), body))
	}

	e := NewExecutor(g, Options{MaxWorkers: 2})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds cap", peak.Load())
	}
	if !e.AllSucceeded() {
		t.Error("bounded run did not finish all tasks")
	}
}

// TestStartTwice verifies the second Start is rejected.
func TestStartTwice(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, task("A"))
	e := NewExecutor(g, Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	waitDone(t, e)
}

// TestEmptyGraph verifies an empty graph terminates immediately with
// success.
func TestEmptyGraph(t *testing.T) {
	var success atomic.Bool
	var fired atomic.Int32
	e := NewExecutor(NewTaskGraph(), Options{OnFinish: func(ok bool) {
		success.Store(ok)
		fired.Add(1)
	}})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 1 || !success.Load() {
		t.Errorf("empty graph: fired=%d success=%v", fired.Load(), success.Load())
	}
}

// TestBusEvents verifies lifecycle events reach a subscriber.
func TestBusEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.SubscribeAll(64)

	a, b := task("A"), task("B")
	g, err := Linear(a, b)
	if err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(g, Options{Bus: bus})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, e)

	seen := map[string]int{}
	deadline := time.After(time.Second)
	for seen[events.EventTypeRunFinished] == 0 {
		select {
		case ev := <-sub:
			seen[ev.EventType()]++
		case <-deadline:
			t.Fatalf("no run.finished event; saw %v", seen)
		}
	}
	if seen[events.EventTypeTaskStarted] != 2 {
		t.Errorf("expected 2 task.started events, got %d", seen[events.EventTypeTaskStarted])
	}
	if seen[events.EventTypeTaskFinished] != 2 {
		t.Errorf("expected 2 task.finished events, got %d", seen[events.EventTypeTaskFinished])
	}
	if seen[events.EventTypeRunFinished] != 1 {
		t.Errorf("expected 1 run.finished event, got %d", seen[events.EventTypeRunFinished])
	}
}
