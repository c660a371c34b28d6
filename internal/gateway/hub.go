package gateway

import (
	"sync"

	"tasksync/internal/models"
)

// Hub fans document snapshots out to the subscribers of each user key.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*subscription
	nextID uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]*subscription)}
}

// subscription serializes deliveries. After the first delivery it drops
// confirmed snapshots whose revision is not newer than the last one, so a
// resent document (a reconnect, a duplicate broadcast) is not a change.
type subscription struct {
	fn        SnapshotFunc
	mu        sync.Mutex
	revision  int64
	delivered bool
	closed    bool
}

func (s *subscription) deliver(doc models.Document, meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if !meta.PendingWrite {
		if s.delivered && doc.Revision <= s.revision {
			return
		}
		s.revision = doc.Revision
		s.delivered = true
	}
	s.fn(doc, meta)
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// LoadFunc fetches the current document when a subscriber registers.
type LoadFunc func() (models.Document, error)

// Subscribe registers fn for userKey. When load is non-nil it runs while
// publishing is blocked, so no write can slip between the load and the
// registration, and its result is delivered as the first snapshot.
func (h *Hub) Subscribe(userKey string, load LoadFunc, fn SnapshotFunc) (func(), error) {
	sub := &subscription{fn: fn}

	h.mu.Lock()
	var (
		initial models.Document
		err     error
	)
	if load != nil {
		initial, err = load()
		if err != nil {
			h.mu.Unlock()
			return nil, err
		}
	}
	h.nextID++
	id := h.nextID
	if h.subs[userKey] == nil {
		h.subs[userKey] = make(map[uint64]*subscription)
	}
	h.subs[userKey][id] = sub
	h.mu.Unlock()

	if load != nil {
		sub.deliver(initial, Metadata{})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.close()
			h.mu.Lock()
			delete(h.subs[userKey], id)
			if len(h.subs[userKey]) == 0 {
				delete(h.subs, userKey)
			}
			h.mu.Unlock()
		})
	}, nil
}

// Publish delivers doc to every subscriber of userKey.
func (h *Hub) Publish(userKey string, doc models.Document, meta Metadata) {
	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.subs[userKey]))
	for _, sub := range h.subs[userKey] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(doc, meta)
	}
}

// Subscribers reports how many subscribers watch userKey.
func (h *Hub) Subscribers(userKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userKey])
}
