package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tasksync/internal/models"
	"tasksync/internal/storage"
	"tasksync/internal/tasks"
)

// Local is an in-process client of a document store. Clients sharing a
// Hub see each other's confirmed writes.
type Local struct {
	store   storage.Store
	shared  *Hub
	pending *Hub
	logger  *slog.Logger
}

var _ Gateway = (*Local)(nil)

// NewLocal creates a client over store. A nil hub gives the client a
// private one.
func NewLocal(store storage.Store, hub *Hub, logger *slog.Logger) *Local {
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		store:   store,
		shared:  hub,
		pending: NewHub(),
		logger:  logger,
	}
}

func (l *Local) Read(ctx context.Context, userKey string) (models.Document, error) {
	doc, err := l.store.GetDocument(ctx, userKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, fmt.Errorf("read document: %w", err)
	}
	return doc, nil
}

// Write echoes doc to this client's subscribers as a pending snapshot,
// stores it, then publishes the confirmed document to every client.
func (l *Local) Write(ctx context.Context, userKey string, doc models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.pending.Publish(userKey, models.Document{Todos: tasks.Clone(doc.Todos)}, Metadata{PendingWrite: true})

	saved, err := l.store.PutDocument(ctx, userKey, doc.Todos)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	l.shared.Publish(userKey, saved, Metadata{})
	return nil
}

// Subscribe delivers the current document (empty when missing) and then
// every change until the returned func is called.
func (l *Local) Subscribe(ctx context.Context, userKey string, fn SnapshotFunc) (func(), error) {
	load := func() (models.Document, error) {
		doc, err := l.store.GetDocument(ctx, userKey)
		if errors.Is(err, storage.ErrNotFound) {
			return models.Document{}, nil
		}
		return doc, err
	}

	unsubPending, _ := l.pending.Subscribe(userKey, nil, fn)
	unsubShared, err := l.shared.Subscribe(userKey, load, fn)
	if err != nil {
		unsubPending()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	l.logger.Debug("local subscription attached", slog.String("user", userKey))
	return func() {
		unsubShared()
		unsubPending()
	}, nil
}
