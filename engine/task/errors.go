package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/compozy/assetflow/engine/pipeline"
)

var (
	ErrInvalidGraph = errors.New("invalid task graph")
	ErrCycleFound   = errors.New("cycle detected")
	ErrUnknownTask  = errors.New("unknown task")
	ErrTaskFailed   = errors.New("task failed")
)

// GraphError wraps graph validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	return &GraphError{Kind: ErrCycleFound, Msg: "cycle: " + strings.Join(path, " -> ")}
}

// UnknownTaskError is returned when a name is not in the graph.
type UnknownTaskError struct {
	Name  string
	Known []string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// TaskFailedError reports a task whose files did not all succeed.
type TaskFailedError struct {
	Task   string
	Failed []pipeline.FileError
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %q failed for %d file(s)", e.Task, len(e.Failed))
}

func (e *TaskFailedError) Unwrap() error { return ErrTaskFailed }
