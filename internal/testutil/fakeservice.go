// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"todoseq/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	projects []service.Project
	tasks    []service.Task
	comments map[string][]service.Comment // taskID -> comments
	closed   []string
	closedIn []string // project ids passed with closed
	created  []service.Task
	queries  []service.Query
	calls    map[string]int // method -> count

	// Error injection for testing
	TasksErr     error
	CommentsErr  map[string]error // taskID -> error
	CloseTaskErr map[string]error // taskID -> error
	ProjectErr   error
	CreateErr    error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		comments:     make(map[string][]service.Comment),
		calls:        make(map[string]int),
		CommentsErr:  make(map[string]error),
		CloseTaskErr: make(map[string]error),
	}
}

// AddProject adds a project.
func (f *FakeService) AddProject(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, service.Project{ID: id, Name: name})
}

// AddTask adds a task. Tasks are returned for any query, in insertion order.
func (f *FakeService) AddTask(t service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
}

// AddComment adds a comment to a task.
func (f *FakeService) AddComment(taskID string, c service.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.TaskID = taskID
	f.comments[taskID] = append(f.comments[taskID], c)
}

// Closed returns the ids passed to CloseTask, in call order.
func (f *FakeService) Closed() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.closed...)
}

// Created returns the tasks created through CreateTask.
func (f *FakeService) Created() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Task(nil), f.created...)
}

// ClosedProjects returns the project ids passed with each closed task.
func (f *FakeService) ClosedProjects() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.closedIn...)
}

// Queries returns the queries passed to Tasks.
func (f *FakeService) Queries() []service.Query {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Query(nil), f.queries...)
}

// Calls returns how often a method was called.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// Tasks implements service.Service.
func (f *FakeService) Tasks(ctx context.Context, q service.Query) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Tasks"]++
	f.queries = append(f.queries, q)
	if f.TasksErr != nil {
		return nil, f.TasksErr
	}
	result := make([]service.Task, len(f.tasks))
	copy(result, f.tasks)
	return result, nil
}

// Comments implements service.Service.
func (f *FakeService) Comments(ctx context.Context, taskID string) ([]service.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Comments"]++
	if err, ok := f.CommentsErr[taskID]; ok && err != nil {
		return nil, err
	}
	return append([]service.Comment(nil), f.comments[taskID]...), nil
}

// CreateTask implements service.Service. Created tasks get ids "new-1",
// "new-2", ... and are returned by later Tasks calls.
func (f *FakeService) CreateTask(ctx context.Context, projectID, content string) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateTask"]++
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	id := fmt.Sprintf("new-%d", f.calls["CreateTask"])
	t := service.Task{
		ID:        id,
		ProjectID: projectID,
		Content:   content,
		URL:       "https://todoist.com/showTask?id=" + id,
	}
	f.tasks = append(f.tasks, t)
	f.created = append(f.created, t)
	return t, nil
}

// CloseTask implements service.Service.
func (f *FakeService) CloseTask(ctx context.Context, projectID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CloseTask"]++
	if err, ok := f.CloseTaskErr[taskID]; ok && err != nil {
		return err
	}
	for _, t := range f.tasks {
		if t.ID == taskID {
			f.closed = append(f.closed, taskID)
			f.closedIn = append(f.closedIn, projectID)
			return nil
		}
	}
	return ErrNotFound
}

// Projects implements service.Service.
func (f *FakeService) Projects(ctx context.Context) ([]service.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Projects"]++
	if f.ProjectErr != nil {
		return nil, f.ProjectErr
	}
	return append([]service.Project(nil), f.projects...), nil
}

// Project implements service.Service.
func (f *FakeService) Project(ctx context.Context, id string) (service.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Project"]++
	if f.ProjectErr != nil {
		return service.Project{}, f.ProjectErr
	}
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return service.Project{}, ErrNotFound
}
