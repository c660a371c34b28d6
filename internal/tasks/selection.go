package tasks

import (
	"slices"

	"tasksync/internal/models"
)

// Selection is the set of task ids targeted by a bulk operation. It belongs
// to the presentation layer and is never pruned when tasks disappear.
type Selection map[string]struct{}

// Set adds or removes id.
func (s Selection) Set(id string, selected bool) {
	if selected {
		s[id] = struct{}{}
		return
	}
	delete(s, id)
}

func (s Selection) Toggle(id string) {
	s.Set(id, !s.Has(id))
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Selection) Len() int { return len(s) }

func (s Selection) Clear() {
	clear(s)
}

// SelectAll replaces the selection with the ids of the visible tasks.
func (s Selection) SelectAll(visible []models.Task) {
	clear(s)
	for _, t := range visible {
		s[t.ID] = struct{}{}
	}
}

// IDs returns the selected ids in sorted order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
