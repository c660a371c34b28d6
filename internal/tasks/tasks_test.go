package tasks

import (
	"errors"
	"testing"
	"time"

	"tasksync/internal/models"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func mustNew(t *testing.T, text string, p models.Priority, c models.Category, at time.Time) models.Task {
	t.Helper()

	task, err := New(models.TaskFields{Text: text, Priority: p, Category: c}, at)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", text, err)
	}
	return task
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		fields  models.TaskFields
		wantErr error
	}{
		{
			name:   "valid task",
			fields: models.TaskFields{Text: "  Buy milk  ", Priority: models.PriorityMedium, Category: models.CategoryShopping},
		},
		{
			name:    "blank text",
			fields:  models.TaskFields{Text: "   ", Priority: models.PriorityLow, Category: models.CategoryWork},
			wantErr: models.ErrEmptyText,
		},
		{
			name:    "unknown priority",
			fields:  models.TaskFields{Text: "x", Priority: "urgent", Category: models.CategoryWork},
			wantErr: models.ErrInvalidPriority,
		},
		{
			name:    "unknown category",
			fields:  models.TaskFields{Text: "x", Priority: models.PriorityLow, Category: "garden"},
			wantErr: models.ErrInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := New(tt.fields, base)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if task.ID == "" {
				t.Error("expected a generated id")
			}
			if task.Text != "Buy milk" {
				t.Errorf("Text = %q, want trimmed %q", task.Text, "Buy milk")
			}
			if task.Completed {
				t.Error("new task must not be completed")
			}
			if !task.CreatedAt.Equal(base) || !task.UpdatedAt.Equal(base) {
				t.Errorf("timestamps = %v/%v, want %v", task.CreatedAt, task.UpdatedAt, base)
			}
		})
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		task := mustNew(t, "x", models.PriorityLow, models.CategoryOther, base)
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestToggle_TwiceRestoresFlag(t *testing.T) {
	task := mustNew(t, "Write report", models.PriorityHigh, models.CategoryWork, base)
	list := []models.Task{task}

	once, changed := Toggle(list, task.ID, base.Add(time.Minute))
	if !changed || !once[0].Completed {
		t.Fatalf("first toggle: changed=%v completed=%v", changed, once[0].Completed)
	}
	twice, _ := Toggle(once, task.ID, base.Add(2*time.Minute))
	if twice[0].Completed != task.Completed {
		t.Errorf("completed = %v after two toggles, want %v", twice[0].Completed, task.Completed)
	}
	if !twice[0].UpdatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("UpdatedAt = %v, want second toggle time", twice[0].UpdatedAt)
	}
	if list[0].Completed {
		t.Error("Toggle mutated its input")
	}
}

func TestTransforms_UnknownIDIsNoop(t *testing.T) {
	task := mustNew(t, "a", models.PriorityLow, models.CategoryOther, base)
	list := []models.Task{task}
	now := base.Add(time.Hour)

	if _, changed := Toggle(list, "missing", now); changed {
		t.Error("Toggle reported change for unknown id")
	}
	if _, changed := Remove(list, "missing"); changed {
		t.Error("Remove reported change for unknown id")
	}
	fields := models.TaskFields{Text: "b", Priority: models.PriorityHigh, Category: models.CategoryWork}
	if _, changed := Update(list, "missing", fields, now); changed {
		t.Error("Update reported change for unknown id")
	}
	if _, changed := CompleteAll(list, []string{"missing"}, now); changed {
		t.Error("CompleteAll reported change for unknown id")
	}
	if _, changed := RemoveAll(list, nil); changed {
		t.Error("RemoveAll reported change for empty ids")
	}
}

func TestBulkTransforms(t *testing.T) {
	a := mustNew(t, "a", models.PriorityLow, models.CategoryWork, base)
	b := mustNew(t, "b", models.PriorityLow, models.CategoryWork, base)
	c := mustNew(t, "c", models.PriorityLow, models.CategoryWork, base)
	list := []models.Task{a, b, c}
	now := base.Add(time.Hour)

	completed, _ := CompleteAll(list, []string{a.ID, c.ID}, now)
	if !completed[0].Completed || completed[1].Completed || !completed[2].Completed {
		t.Errorf("CompleteAll flags = %v %v %v", completed[0].Completed, completed[1].Completed, completed[2].Completed)
	}
	if !completed[0].UpdatedAt.Equal(now) || completed[1].UpdatedAt.Equal(now) {
		t.Error("CompleteAll must bump UpdatedAt only on matching tasks")
	}

	prioritized, _ := SetPriority(list, []string{b.ID}, models.PriorityHigh, now)
	if prioritized[1].Priority != models.PriorityHigh || prioritized[0].Priority != models.PriorityLow {
		t.Errorf("SetPriority result = %v/%v", prioritized[0].Priority, prioritized[1].Priority)
	}

	remaining, _ := RemoveAll(list, []string{a.ID, b.ID})
	if len(remaining) != 1 || remaining[0].ID != c.ID {
		t.Errorf("RemoveAll left %v", remaining)
	}

	cleared, changed := RemoveCompleted(completed)
	if !changed || len(cleared) != 1 || cleared[0].ID != b.ID {
		t.Errorf("RemoveCompleted left %v (changed=%v)", cleared, changed)
	}
}

func TestPrependAndUpdate(t *testing.T) {
	a := mustNew(t, "a", models.PriorityLow, models.CategoryWork, base)
	b := mustNew(t, "b", models.PriorityLow, models.CategoryWork, base.Add(time.Second))

	list := Prepend([]models.Task{a}, b)
	if len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("Prepend order = %v", list)
	}

	due := base.AddDate(0, 0, 3)
	fields := models.TaskFields{Text: "renamed", Priority: models.PriorityHigh, Category: models.CategoryHealth, DueDate: &due, Notes: "n"}
	updated, changed := Update(list, a.ID, fields, base.Add(time.Hour))
	if !changed {
		t.Fatal("Update reported no change")
	}
	got := updated[1]
	if got.Text != "renamed" || got.Priority != models.PriorityHigh || got.Category != models.CategoryHealth || got.Notes != "n" {
		t.Errorf("Update fields = %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.ID != a.ID || !got.CreatedAt.Equal(a.CreatedAt) {
		t.Error("Update must keep id and createdAt")
	}
}
