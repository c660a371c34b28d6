package main

import (
	"fmt"
	"strings"
	"time"

	"tasksync/internal/models"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// findTask returns the task whose id starts with prefix. The prefix must
// match exactly one task.
func findTask(list []models.Task, prefix string) (models.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return models.Task{}, fmt.Errorf("empty task id")
	}

	var (
		found   models.Task
		matches int
	)
	for _, t := range list {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			found = t
			matches++
		}
	}
	switch matches {
	case 0:
		return models.Task{}, fmt.Errorf("no task matches %q", prefix)
	case 1:
		return found, nil
	default:
		return models.Task{}, fmt.Errorf("%q matches %d tasks; use a longer id", prefix, matches)
	}
}

func resolveIDs(list []models.Task, prefixes []string) ([]string, error) {
	ids := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		t, err := findTask(list, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// parseDue accepts YYYY-MM-DD, today, tomorrow, or none to clear.
func parseDue(s string, now time.Time) (*time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	midnight := func(t time.Time) *time.Time {
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		return &day
	}

	switch s {
	case "", "none":
		return nil, nil
	case "today":
		return midnight(now), nil
	case "tomorrow":
		return midnight(now.AddDate(0, 0, 1)), nil
	}

	day, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return nil, fmt.Errorf("due date %q: want YYYY-MM-DD, today, tomorrow or none", s)
	}
	return &day, nil
}
