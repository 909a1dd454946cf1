package client

import (
	"context"
	"slices"
	"sync"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/uistate"
)

// TaskRemote is the server side of a TaskList. TaskAPI implements it.
type TaskRemote interface {
	List(ctx context.Context) ([]models.Task, error)
	Delete(ctx context.Context, id string) error
}

// TaskList is the client-side list model. Deletes are optimistic: the row
// disappears at once and comes back if the server refuses.
type TaskList struct {
	remote  TaskRemote
	machine uistate.Machine

	mu    sync.Mutex
	tasks []models.Task
}

func NewTaskList(remote TaskRemote) *TaskList {
	return &TaskList{remote: remote}
}

// Load replaces the list with the server's view.
func (l *TaskList) Load(ctx context.Context) error {
	ctx, err := l.machine.Begin(ctx)
	if err != nil {
		return err
	}
	tasks, err := l.remote.List(ctx)
	if err != nil {
		if !l.machine.Fail(apperrors.Message(err)) {
			return uistate.ErrClosed
		}
		return err
	}
	if l.machine.Closed() {
		return uistate.ErrClosed
	}
	l.mu.Lock()
	l.tasks = tasks
	l.mu.Unlock()
	l.machine.Succeed("", "")
	return nil
}

// Delete removes id locally, then on the server. On failure the row is put
// back where it was.
func (l *TaskList) Delete(ctx context.Context, id string) error {
	ctx, err := l.machine.Begin(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	idx := slices.IndexFunc(l.tasks, func(t models.Task) bool { return t.ID == id })
	var removed models.Task
	if idx >= 0 {
		removed = l.tasks[idx]
		l.tasks = slices.Delete(l.tasks, idx, idx+1)
	}
	l.mu.Unlock()

	if err := l.remote.Delete(ctx, id); err != nil {
		if l.machine.Closed() {
			return uistate.ErrClosed
		}
		if idx >= 0 {
			l.mu.Lock()
			at := min(idx, len(l.tasks))
			l.tasks = slices.Insert(l.tasks, at, removed)
			l.mu.Unlock()
		}
		l.machine.Fail(apperrors.Message(err))
		return err
	}
	if !l.machine.Succeed("", "") {
		return uistate.ErrClosed
	}
	return nil
}

// Tasks returns a copy of the current rows.
func (l *TaskList) Tasks() []models.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.tasks)
}

func (l *TaskList) Snapshot() uistate.Snapshot {
	return l.machine.Snapshot()
}

func (l *TaskList) Close() {
	l.machine.Close()
}
