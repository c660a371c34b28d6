package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyText       = errors.New("task text must not be empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Weight is the display ordering weight: high=3, medium=2, low=1.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return string(p)
}

func (p Priority) Color() string {
	switch p {
	case PriorityLow:
		return "#22c55e"
	case PriorityMedium:
		return "#f97316"
	case PriorityHigh:
		return "#dc2626"
	}
	return "#6b7280"
}

// UnmarshalJSON rejects unknown priorities.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// Category groups tasks by life area.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryOther}

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

func (c Category) Label() string {
	switch c {
	case CategoryWork:
		return "Work"
	case CategoryPersonal:
		return "Personal"
	case CategoryShopping:
		return "Shopping"
	case CategoryHealth:
		return "Health"
	case CategoryOther:
		return "Other"
	}
	return string(c)
}

func (c Category) Color() string {
	switch c {
	case CategoryWork:
		return "#ea580c"
	case CategoryPersonal:
		return "#f97316"
	case CategoryShopping:
		return "#fb923c"
	case CategoryHealth:
		return "#fdba74"
	case CategoryOther:
		return "#fed7aa"
	}
	return "#6b7280"
}

// UnmarshalJSON rejects unknown categories.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseCategory(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Filter selects tasks by completion state.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
		return true
	}
	return false
}

// ParseFilter converts user input into a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	f := Filter(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	return f, nil
}

// Task is a single to-do item.
type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Priority  Priority   `json:"priority"`
	Category  Category   `json:"category"`
	DueDate   *time.Time `json:"dueDate"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TaskFields holds the user-editable fields of a task.
type TaskFields struct {
	Text     string
	Priority Priority
	Category Category
	DueDate  *time.Time
	Notes    string
}

// Normalize trims the text and validates the enums.
func (f TaskFields) Normalize() (TaskFields, error) {
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		return TaskFields{}, ErrEmptyText
	}
	if !f.Priority.Valid() {
		return TaskFields{}, fmt.Errorf("%w: %q", ErrInvalidPriority, f.Priority)
	}
	if !f.Category.Valid() {
		return TaskFields{}, fmt.Errorf("%w: %q", ErrInvalidCategory, f.Category)
	}
	return f, nil
}

// Document is the remote representation of a user's task list.
type Document struct {
	Todos     []Task    `json:"todos"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Revision is assigned by the store and grows by one on every write.
	Revision int64 `json:"revision"`
}

// Stats aggregates counts over a task list.
type Stats struct {
	Total      int              `json:"total"`
	Completed  int              `json:"completed"`
	Active     int              `json:"active"`
	ByPriority map[Priority]int `json:"byPriority"`
	ByCategory map[Category]int `json:"byCategory"`
}
