package retrieve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDefaultProject is the configuration error raised when a retrieve
	// without a filter runs before a default project was selected.
	ErrNoDefaultProject = errors.New("please select a default project")

	// ErrNoTasks reports a query that matched nothing. It is a terminal
	// outcome, not a failure.
	ErrNoTasks = errors.New("there are no tasks")
)

// FetchError wraps a failed call to the task source.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CommentError is a comment fetch failure for one task. The task's block is
// still produced, without comment children.
type CommentError struct {
	TaskID string
	Err    error
}

func (e *CommentError) Error() string {
	return fmt.Sprintf("unable to retrieve comments for task %s: %v", e.TaskID, e.Err)
}

func (e *CommentError) Unwrap() error { return e.Err }

// StructuralError reports a malformed parent graph. The listed tasks are
// left out of the tree.
type StructuralError struct {
	TaskIDs []string
	Reason  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("malformed task hierarchy (%s): %s", e.Reason, strings.Join(e.TaskIDs, ", "))
}

// ArchivalError reports the close call that stopped archival.
// Tasks closed before it stay closed.
type ArchivalError struct {
	TaskID string
	Closed int
	Err    error
}

func (e *ArchivalError) Error() string {
	return fmt.Sprintf("error completing tasks: task %s: %v (%d closed before failure)", e.TaskID, e.Err, e.Closed)
}

func (e *ArchivalError) Unwrap() error { return e.Err }

// InsertError wraps a failure to hand the tree to the host document.
// Nothing was archived.
type InsertError struct {
	Err error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert blocks: %v", e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }
