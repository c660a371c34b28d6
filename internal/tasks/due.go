package tasks

import "time"

// IsOverdue reports whether due lies strictly before now on an earlier
// calendar day. A task due today is never overdue.
func IsOverdue(due *time.Time, now time.Time) bool {
	if due == nil {
		return false
	}
	return due.Before(now) && !sameDay(*due, now)
}

// DueLabel renders a due date relative to now.
func DueLabel(due time.Time, now time.Time) string {
	switch {
	case sameDay(due, now):
		return "Today"
	case sameDay(due, now.AddDate(0, 0, 1)):
		return "Tomorrow"
	case due.In(now.Location()).Year() != now.Year():
		return due.In(now.Location()).Format("2 January 2006")
	default:
		return due.In(now.Location()).Format("2 January")
	}
}

// sameDay compares calendar days in now's location.
func sameDay(t, now time.Time) bool {
	ty, tm, td := t.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}
