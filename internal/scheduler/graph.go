package scheduler

import (
	"fmt"
	"sync"

	"github.com/gammazero/toposort"
)

// TaskGraph holds registered tasks plus the waits-for adjacency. Tasks keep
// their insertion order for stable display indexing. The graph is built
// before execution and is logically frozen once handed to an Executor;
// mutation during execution is not supported.
type TaskGraph struct {
	mu       sync.RWMutex
	tasks    []*Task
	byName   map[string]*Task
	waitsFor map[string][]*Task
}

// NewTaskGraph creates an empty graph.
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{
		byName:   make(map[string]*Task),
		waitsFor: make(map[string][]*Task),
	}
}

// Linear builds a graph where each task waits for the one before it, and
// nothing else.
func Linear(tasks ...*Task) (*TaskGraph, error) {
	g := NewTaskGraph()
	for _, t := range tasks {
		if err := g.AddTask(t); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(tasks); i++ {
		if err := g.AddDependency(tasks[i], tasks[i-1]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddTask registers a task and optionally records dependency edges.
// Registering the same task twice is a no-op; registering a different task
// under a taken name fails with ErrDuplicateTask rather than silently
// overwriting.
func (g *TaskGraph) AddTask(task *Task, waitsFor ...*Task) error {
	g.mu.Lock()
	if existing, ok := g.byName[task.Name]; ok {
		if existing != task {
			g.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrDuplicateTask, task.Name)
		}
	} else {
		g.tasks = append(g.tasks, task)
		g.byName[task.Name] = task
	}
	g.mu.Unlock()

	if len(waitsFor) > 0 {
		return g.AddDependency(task, waitsFor...)
	}
	return nil
}

// AddDependency appends waits-for edges to an already-registered task. Every
// dependency must itself be registered.
func (g *TaskGraph) AddDependency(task *Task, waitsFor ...*Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byName[task.Name]; !ok {
		return fmt.Errorf("%w: task %q not registered", ErrUnknownDependency, task.Name)
	}
	for _, dep := range waitsFor {
		registered, ok := g.byName[dep.Name]
		if !ok || registered != dep {
			return fmt.Errorf("%w: %q waits for unregistered task %q", ErrUnknownDependency, task.Name, dep.Name)
		}
		g.waitsFor[task.Name] = append(g.waitsFor[task.Name], dep)
	}
	return nil
}

// Tasks returns the registered tasks in insertion order.
func (g *TaskGraph) Tasks() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Task(nil), g.tasks...)
}

// WaitsFor returns the direct dependencies of a task.
func (g *TaskGraph) WaitsFor(task *Task) []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Task(nil), g.waitsFor[task.Name]...)
}

// Lookup returns the registered task with the given name.
func (g *TaskGraph) Lookup(name string) (*Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.byName[name]
	return t, ok
}

// FindCycle returns the ordered task names forming a cycle, or nil if the
// waits-for relation is acyclic. Depth-first traversal in insertion order;
// each task on the active recursion path is marked, and a dependency edge
// reaching a marked task closes a cycle. The path is reconstructed by walking
// the discovered-via pointers from the back-edge target up to the current
// task. Only the first cycle met in traversal order is reported.
func (g *TaskGraph) FindCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(g.tasks))
	onStack := make(map[string]bool, len(g.tasks))
	via := make(map[string]*Task, len(g.tasks))

	var cycle []string
	var dfs func(t *Task)
	dfs = func(t *Task) {
		visited[t.Name] = true
		onStack[t.Name] = true
		for _, dep := range g.waitsFor[t.Name] {
			if cycle != nil {
				return
			}
			if !visited[dep.Name] {
				via[t.Name] = dep
				dfs(dep)
			} else if onStack[dep.Name] {
				// Back edge t -> dep: walk the discovered-via chain from dep
				// down to t, then close the loop.
				for v := dep; v != t; v = via[v.Name] {
					cycle = append(cycle, v.Name)
				}
				cycle = append(cycle, t.Name, dep.Name)
			}
		}
		onStack[t.Name] = false
	}

	for _, t := range g.tasks {
		if !visited[t.Name] {
			dfs(t)
		}
		if cycle != nil {
			break
		}
	}
	return cycle
}

// Validate checks that every dependency is a registered task and that the
// waits-for relation is acyclic. An executor refuses to run a graph that
// fails validation.
func (g *TaskGraph) Validate() error {
	g.mu.RLock()
	for name, deps := range g.waitsFor {
		for _, dep := range deps {
			if _, ok := g.byName[dep.Name]; !ok {
				g.mu.RUnlock()
				return fmt.Errorf("%w: %q waits for %q", ErrUnknownDependency, name, dep.Name)
			}
		}
	}
	g.mu.RUnlock()

	if cycle := g.FindCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

// Order returns a topological ordering of the task names, dependencies
// first. Used for plan display; cycle diagnostics come from FindCycle, which
// reports the offending path.
func (g *TaskGraph) Order() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []toposort.Edge
	for _, t := range g.tasks {
		deps := g.waitsFor[t.Name]
		if len(deps) == 0 {
			edges = append(edges, toposort.Edge{nil, t.Name})
			continue
		}
		for _, dep := range deps {
			edges = append(edges, toposort.Edge{dep.Name, t.Name})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphCycle, err)
	}

	order := make([]string, 0, len(g.tasks))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}
