package tasks

import (
	"testing"
	"time"
)

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	earlierToday := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name string
		due  *time.Time
		want bool
	}{
		{name: "yesterday", due: &yesterday, want: true},
		{name: "earlier today", due: &earlierToday, want: false},
		{name: "tomorrow", due: &tomorrow, want: false},
		{name: "no due date", due: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOverdue(tt.due, now); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDueLabel(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		due  time.Time
		want string
	}{
		{due: now.Add(-time.Hour), want: "Today"},
		{due: now.AddDate(0, 0, 1), want: "Tomorrow"},
		{due: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), want: "4 July"},
		{due: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), want: "2 January 2026"},
	}

	for _, tt := range tests {
		if got := DueLabel(tt.due, now); got != tt.want {
			t.Errorf("DueLabel(%v) = %q, want %q", tt.due, got, tt.want)
		}
	}
}
