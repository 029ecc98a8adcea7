package main

import (
	"strings"
	"testing"

	"github.com/aristath/taskui/internal/config"
	"github.com/aristath/taskui/internal/scheduler"
)

// TestBuildGraph verifies pipeline declarations become a valid graph with
// the declared edges.
func TestBuildGraph(t *testing.T) {
	cfg := &config.Config{
		Pipeline: []config.TaskConfig{
			{Name: "compile", Command: "true"},
			{Name: "test", Command: "true", DependsOn: []string{"compile"}},
			{Name: "lint", Command: "true"},
			{Name: "package", Command: "true", DependsOn: []string{"test", "lint"}},
		},
	}

	g, err := buildGraph(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(g.Tasks()) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(g.Tasks()))
	}

	pkg, _ := g.Lookup("package")
	deps := g.WaitsFor(pkg)
	if len(deps) != 2 {
		t.Fatalf("package should wait for 2 tasks, got %d", len(deps))
	}
}

// TestCommandBodyCapture verifies a command's stdout lands in the task's
// context and a failing command surfaces as an error.
func TestCommandBodyCapture(t *testing.T) {
	ok := scheduler.NewTask("echo", commandBody("echo hello"))
	bad := scheduler.NewTask("fail", commandBody("exit 3"))

	g := scheduler.NewTaskGraph()
	if err := g.AddTask(ok); err != nil {
		t.Fatal(err)
	}
	if err := g.AddTask(bad); err != nil {
		t.Fatal(err)
	}

	e := scheduler.NewExecutor(g, scheduler.Options{})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	<-e.Done()

	if got := e.Output(ok); !strings.Contains(got, "hello") {
		t.Errorf("stdout not captured: %q", got)
	}
	if e.Status(bad) != scheduler.StatusFailure {
		t.Errorf("failing command not marked Failure: %v", e.Status(bad))
	}
	if err, _ := e.Failure(bad); err == nil || !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("exit status not captured: %v", err)
	}
}

// TestDemoGraphValid verifies the built-in demo pipeline is acyclic.
func TestDemoGraphValid(t *testing.T) {
	g, err := demoGraph()
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Order(); err != nil {
		t.Fatal(err)
	}
}
