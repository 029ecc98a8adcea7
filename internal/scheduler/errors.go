package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDependency is returned when an edge names a task that was
	// never registered in the graph.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrDuplicateTask is returned when a second, distinct task is registered
	// under an already-taken name.
	ErrDuplicateTask = errors.New("duplicate task name")

	// ErrGraphCycle marks validation failures caused by a cyclic waits-for
	// relation. Use errors.Is against this and errors.As against *CycleError
	// to get the path.
	ErrGraphCycle = errors.New("cycle in task graph")

	// ErrAlreadyStarted is returned by a second call to Executor.Start.
	ErrAlreadyStarted = errors.New("execution already started")
)

// CycleError carries the offending cycle as an ordered list of task names,
// first and last entries closing the loop.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrGraphCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrGraphCycle }
