package main

import (
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/aristath/taskui/internal/capture"
	"github.com/aristath/taskui/internal/config"
	"github.com/aristath/taskui/internal/scheduler"
)

// buildGraph turns the declared pipeline into a task graph. Each task shells
// out its command with stdout and stderr bound to the task's execution
// context, so the dashboard sees the command's own output.
func buildGraph(cfg *config.Config) (*scheduler.TaskGraph, error) {
	g := scheduler.NewTaskGraph()
	byName := make(map[string]*scheduler.Task, len(cfg.Pipeline))

	for _, tc := range cfg.Pipeline {
		t := scheduler.NewTask(tc.Name, commandBody(tc.Command))
		byName[tc.Name] = t
		if err := g.AddTask(t); err != nil {
			return nil, err
		}
	}
	for _, tc := range cfg.Pipeline {
		for _, dep := range tc.DependsOn {
			if err := g.AddDependency(byName[tc.Name], byName[dep]); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func commandBody(command string) scheduler.Body {
	return func(tc *capture.Context) error {
		tc.Log().Info("running command", zap.String("command", command))
		cmd := exec.Command("sh", "-c", command)
		cmd.Stdout = tc
		cmd.Stderr = tc
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("command %q: %w", command, err)
		}
		return nil
	}
}

// demoGraph is a built-in pipeline for trying the dashboard without a
// config file.
func demoGraph() (*scheduler.TaskGraph, error) {
	step := func(name string, d time.Duration, lines int) *scheduler.Task {
		return scheduler.NewTask(name, func(tc *capture.Context) error {
			for i := 1; i <= lines; i++ {
				tc.Printf("%s: step %d/%d\n", name, i, lines)
				tc.Log().Info("progress", zap.Int("step", i))
				time.Sleep(d)
			}
			return nil
		})
	}

	fetch := step("fetch", 300*time.Millisecond, 5)
	build := step("build", 500*time.Millisecond, 8)
	unitTest := step("unit-test", 400*time.Millisecond, 6)
	lint := step("lint", 200*time.Millisecond, 4)
	pack := step("package", 300*time.Millisecond, 5)
	deploy := step("deploy", 600*time.Millisecond, 3)

	g := scheduler.NewTaskGraph()
	if err := g.AddTask(fetch); err != nil {
		return nil, err
	}
	if err := g.AddTask(build, fetch); err != nil {
		return nil, err
	}
	if err := g.AddTask(unitTest, build); err != nil {
		return nil, err
	}
	if err := g.AddTask(lint, fetch); err != nil {
		return nil, err
	}
	if err := g.AddTask(pack, unitTest, lint); err != nil {
		return nil, err
	}
	if err := g.AddTask(deploy, pack); err != nil {
		return nil, err
	}
	return g, nil
}
