package engine

import (
	"fmt"
	"time"

	"tasksync/internal/models"
	"tasksync/internal/tasks"
)

// mutate applies fn to the list and re-arms the debounced write. A
// transform that changes nothing leaves the list, the watchers and the
// timer alone.
func (e *Engine) mutate(fn func(list []models.Task, now time.Time) ([]models.Task, bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadedLocked(); err != nil {
		return err
	}

	next, changed, err := fn(e.list, e.clock.Now())
	if err != nil || !changed {
		return err
	}
	e.list = next
	e.notifyLocked()
	e.scheduleLocked()
	return nil
}

// Add creates a task from fields and puts it at the head of the list.
func (e *Engine) Add(fields models.TaskFields) (models.Task, error) {
	var created models.Task
	err := e.mutate(func(list []models.Task, now time.Time) ([]models.Task, bool, error) {
		task, err := tasks.New(fields, now)
		if err != nil {
			return nil, false, err
		}
		created = task
		return tasks.Prepend(list, task), true, nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return created, nil
}

// Toggle flips the completion flag of task id.
func (e *Engine) Toggle(id string) error {
	return e.mutate(func(list []models.Task, now time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.Toggle(list, id, now)
		return next, changed, nil
	})
}

// Delete removes task id.
func (e *Engine) Delete(id string) error {
	return e.mutate(func(list []models.Task, _ time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.Remove(list, id)
		return next, changed, nil
	})
}

// Update replaces the editable fields of task id.
func (e *Engine) Update(id string, fields models.TaskFields) error {
	fields, err := fields.Normalize()
	if err != nil {
		return err
	}
	return e.mutate(func(list []models.Task, now time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.Update(list, id, fields, now)
		return next, changed, nil
	})
}

// BulkComplete marks every listed task as completed.
func (e *Engine) BulkComplete(ids []string) error {
	return e.mutate(func(list []models.Task, now time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.CompleteAll(list, ids, now)
		return next, changed, nil
	})
}

// BulkDelete removes every listed task.
func (e *Engine) BulkDelete(ids []string) error {
	return e.mutate(func(list []models.Task, _ time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.RemoveAll(list, ids)
		return next, changed, nil
	})
}

// BulkSetPriority assigns p to every listed task.
func (e *Engine) BulkSetPriority(ids []string, p models.Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidPriority, p)
	}
	return e.mutate(func(list []models.Task, now time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.SetPriority(list, ids, p, now)
		return next, changed, nil
	})
}

// ClearCompleted removes every completed task.
func (e *Engine) ClearCompleted() error {
	return e.mutate(func(list []models.Task, _ time.Time) ([]models.Task, bool, error) {
		next, changed := tasks.RemoveCompleted(list)
		return next, changed, nil
	})
}
