package retrieve

import (
	"context"

	"go.uber.org/zap"

	"todoseq/internal/service"
)

// Archiver closes fetched tasks once their tree has been inserted.
type Archiver struct {
	closer service.TaskCloser
	l      *zap.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(closer service.TaskCloser, l *zap.Logger) *Archiver {
	if l == nil {
		l = zap.NewNop()
	}
	return &Archiver{closer: closer, l: l}
}

// Archive closes every task in order, children included, one call at a time.
// A repeated id is closed once. It stops at the first failure and returns an
// *ArchivalError; tasks closed before that stay closed. It returns the number
// of tasks closed.
func (a *Archiver) Archive(ctx context.Context, tasks []service.Task) (int, error) {
	closed := 0
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if err := a.closer.CloseTask(ctx, t.ProjectID, t.ID); err != nil {
			a.l.Error("close task failed", zap.String("task_id", t.ID), zap.Int("closed", closed), zap.Error(err))
			return closed, &ArchivalError{TaskID: t.ID, Closed: closed, Err: err}
		}
		closed++
		a.l.Debug("closed task", zap.String("task_id", t.ID))
	}
	return closed, nil
}
