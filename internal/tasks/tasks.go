// Package tasks holds the pure operations over task lists: construction,
// copy-on-write mutations, filtering, ordering and statistics.
//
// Nothing in this package performs I/O or keeps state. Every transform
// returns a fresh slice and leaves its input untouched, so callers may hand
// out earlier lists as read-only snapshots.
package tasks

import (
	"time"

	"github.com/google/uuid"

	"tasksync/internal/models"
)

// New builds a task from user input with a fresh id and timestamps.
func New(fields models.TaskFields, now time.Time) (models.Task, error) {
	fields, err := fields.Normalize()
	if err != nil {
		return models.Task{}, err
	}
	return models.Task{
		ID:        uuid.NewString(),
		Text:      fields.Text,
		Priority:  fields.Priority,
		Category:  fields.Category,
		DueDate:   cloneTime(fields.DueDate),
		Notes:     fields.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy of list.
func Clone(list []models.Task) []models.Task {
	if list == nil {
		return nil
	}
	out := make([]models.Task, len(list))
	for i, t := range list {
		t.DueDate = cloneTime(t.DueDate)
		out[i] = t
	}
	return out
}

// Prepend places task at the head of the list.
func Prepend(list []models.Task, task models.Task) []models.Task {
	out := make([]models.Task, 0, len(list)+1)
	out = append(out, task)
	return append(out, Clone(list)...)
}

// Toggle flips the completion flag of the task with the given id.
func Toggle(list []models.Task, id string, now time.Time) ([]models.Task, bool) {
	return mapMatching(list, func(t models.Task) bool { return t.ID == id }, func(t *models.Task) {
		t.Completed = !t.Completed
		t.UpdatedAt = now
	})
}

// Update replaces the mutable fields of the task with the given id.
// Fields must already be normalized.
func Update(list []models.Task, id string, fields models.TaskFields, now time.Time) ([]models.Task, bool) {
	return mapMatching(list, func(t models.Task) bool { return t.ID == id }, func(t *models.Task) {
		t.Text = fields.Text
		t.Priority = fields.Priority
		t.Category = fields.Category
		t.DueDate = cloneTime(fields.DueDate)
		t.Notes = fields.Notes
		t.UpdatedAt = now
	})
}

// CompleteAll marks every task whose id is in ids as completed.
func CompleteAll(list []models.Task, ids []string, now time.Time) ([]models.Task, bool) {
	set := idSet(ids)
	return mapMatching(list, func(t models.Task) bool { return set[t.ID] }, func(t *models.Task) {
		t.Completed = true
		t.UpdatedAt = now
	})
}

// SetPriority assigns p to every task whose id is in ids.
func SetPriority(list []models.Task, ids []string, p models.Priority, now time.Time) ([]models.Task, bool) {
	set := idSet(ids)
	return mapMatching(list, func(t models.Task) bool { return set[t.ID] }, func(t *models.Task) {
		t.Priority = p
		t.UpdatedAt = now
	})
}

// Remove drops the task with the given id.
func Remove(list []models.Task, id string) ([]models.Task, bool) {
	return removeMatching(list, func(t models.Task) bool { return t.ID == id })
}

// RemoveAll drops every task whose id is in ids.
func RemoveAll(list []models.Task, ids []string) ([]models.Task, bool) {
	set := idSet(ids)
	return removeMatching(list, func(t models.Task) bool { return set[t.ID] })
}

// RemoveCompleted drops every completed task.
func RemoveCompleted(list []models.Task) ([]models.Task, bool) {
	return removeMatching(list, func(t models.Task) bool { return t.Completed })
}

func mapMatching(list []models.Task, match func(models.Task) bool, apply func(*models.Task)) ([]models.Task, bool) {
	out := Clone(list)
	changed := false
	for i := range out {
		if match(out[i]) {
			apply(&out[i])
			changed = true
		}
	}
	if !changed {
		return list, false
	}
	return out, true
}

func removeMatching(list []models.Task, match func(models.Task) bool) ([]models.Task, bool) {
	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		if match(t) {
			continue
		}
		t.DueDate = cloneTime(t.DueDate)
		out = append(out, t)
	}
	if len(out) == len(list) {
		return list, false
	}
	return out, true
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
