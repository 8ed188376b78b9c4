// Package service defines the backend-agnostic interface for task operations.
package service

// Task represents a single task as fetched from the tracker.
// Tasks are read-only snapshots; nothing in this module mutates them.
type Task struct {
	ID          string
	ProjectID   string
	Content     string
	Description string
	Due         *Due // nil when the task has no due date
	CreatedAt   string
	URL         string
	ParentID    string // "" for top-level tasks
}

// HasParent reports whether the task references a parent task.
func (t Task) HasParent() bool {
	return t.ParentID != ""
}

// Due is a task due date. Date is "YYYY-MM-DD" (or an RFC3339 timestamp
// for backends that only report full timestamps).
type Due struct {
	Date        string
	Datetime    string
	String      string
	IsRecurring bool
}

// Comment is a discussion item attached to a task.
type Comment struct {
	ID         string
	TaskID     string
	Content    string
	PostedAt   string
	Attachment *Attachment
}

// Attachment is a file attached to a comment.
type Attachment struct {
	FileName string
	FileURL  string
	FileType string
}

// Project is a container of tasks (a Todoist project or a Google task list).
type Project struct {
	ID   string
	Name string
}

// Query selects which tasks to fetch. Exactly one of ProjectID or Filter
// is expected to be set.
type Query struct {
	ProjectID string
	Filter    string
}

// FilterToday is the filter expression for tasks due today.
const FilterToday = "today"
