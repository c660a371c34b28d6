package tasks

import (
	"fmt"
	"strings"

	"tasksync/internal/models"
)

// Validate checks a list received from outside the process before it is
// stored.
func Validate(list []models.Task) error {
	seen := make(map[string]struct{}, len(list))
	for i, t := range list {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("task %d: missing id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("task %s: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}

		if strings.TrimSpace(t.Text) == "" {
			return fmt.Errorf("task %s: %w", t.ID, models.ErrEmptyText)
		}
		if !t.Priority.Valid() {
			return fmt.Errorf("task %s: %w", t.ID, models.ErrInvalidPriority)
		}
		if !t.Category.Valid() {
			return fmt.Errorf("task %s: %w", t.ID, models.ErrInvalidCategory)
		}
		if t.UpdatedAt.Before(t.CreatedAt) {
			return fmt.Errorf("task %s: updatedAt precedes createdAt", t.ID)
		}
	}
	return nil
}
