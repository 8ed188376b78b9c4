// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All tracker API calls go through this interface.
// Commands and the retrieve engine never import a tracker SDK directly.
type Service interface {
	// Tasks returns the open tasks matching q, in API order.
	// An empty slice with a nil error means nothing matched.
	Tasks(ctx context.Context, q Query) ([]Task, error)

	// Comments returns the comments of a task in API order.
	Comments(ctx context.Context, taskID string) ([]Comment, error)

	// CreateTask adds a task with the given content to a project. An empty
	// projectID means the backend's default (Todoist inbox, default list).
	CreateTask(ctx context.Context, projectID, content string) (Task, error)

	// CloseTask marks a task as completed.
	// projectID is required by backends that address tasks per list.
	CloseTask(ctx context.Context, projectID, taskID string) error

	// Projects returns all projects in API order.
	Projects(ctx context.Context) ([]Project, error)

	// Project returns a single project by ID.
	Project(ctx context.Context, id string) (Project, error)
}

// CommentSource is the subset of Service used to enrich tasks with comments.
type CommentSource interface {
	Comments(ctx context.Context, taskID string) ([]Comment, error)
}

// TaskCloser is the subset of Service used to archive tasks.
type TaskCloser interface {
	CloseTask(ctx context.Context, projectID, taskID string) error
}
