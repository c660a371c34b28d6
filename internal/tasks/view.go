package tasks

import (
	"slices"
	"strings"

	"tasksync/internal/models"
)

// Filter selects tasks by completion state and search query.
//
// A query that case-insensitively names a category selects that category
// exactly; any other query, surrounding spaces included, matches text or
// notes as a case-insensitive substring. A blank query does not filter.
func Filter(list []models.Task, filter models.Filter, query string) []models.Task {
	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		switch filter {
		case models.FilterActive:
			if t.Completed {
				continue
			}
		case models.FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}

	if strings.TrimSpace(query) == "" {
		return out
	}
	q := strings.ToLower(query)

	if category := models.Category(q); category.Valid() {
		return slices.DeleteFunc(out, func(t models.Task) bool { return t.Category != category })
	}
	return slices.DeleteFunc(out, func(t models.Task) bool {
		return !strings.Contains(strings.ToLower(t.Text), q) &&
			!strings.Contains(strings.ToLower(t.Notes), q)
	})
}

// Sort returns the display order: incomplete first, then higher priority,
// then newest first. The sort is stable.
func Sort(list []models.Task) []models.Task {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b models.Task) int {
		if a.Completed != b.Completed {
			if a.Completed {
				return 1
			}
			return -1
		}
		if wa, wb := a.Priority.Weight(), b.Priority.Weight(); wa != wb {
			return wb - wa
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// ComputeStats counts tasks by state, priority and category.
func ComputeStats(list []models.Task) models.Stats {
	stats := models.Stats{
		Total:      len(list),
		ByPriority: make(map[models.Priority]int, len(models.Priorities)),
		ByCategory: make(map[models.Category]int, len(models.Categories)),
	}
	for _, p := range models.Priorities {
		stats.ByPriority[p] = 0
	}
	for _, c := range models.Categories {
		stats.ByCategory[c] = 0
	}
	for _, t := range list {
		if t.Completed {
			stats.Completed++
		} else {
			stats.Active++
		}
		stats.ByPriority[t.Priority]++
		stats.ByCategory[t.Category]++
	}
	return stats
}
