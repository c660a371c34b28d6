// Package gateway provides access to the remote task document of a user.
//
// A Gateway reads, writes and watches one document per user key. Change
// notifications carry Metadata telling whether the snapshot reflects a
// write this client issued that the store has not confirmed yet.
//
// Two implementations exist:
//
//	Local  - in-process client over a storage.Store and a shared Hub
//	Remote - HTTP + websocket client of the document server
package gateway

import (
	"context"

	"tasksync/internal/models"
	"tasksync/internal/storage"
)

// ErrNotFound is returned by Read when the user has no document yet.
var ErrNotFound = storage.ErrNotFound

// Metadata describes a snapshot delivered to a subscriber.
type Metadata struct {
	// PendingWrite is set when the snapshot echoes a write of this client
	// that the store has not confirmed.
	PendingWrite bool
}

// SnapshotFunc receives document snapshots. It may be called from any
// goroutine.
type SnapshotFunc func(doc models.Document, meta Metadata)

// Gateway is the document store contract used by the sync engine.
type Gateway interface {
	// Read returns the current document or ErrNotFound.
	Read(ctx context.Context, userKey string) (models.Document, error)

	// Write stores doc.Todos as the user's task list, merging into an
	// existing document.
	Write(ctx context.Context, userKey string, doc models.Document) error

	// Subscribe registers fn for every change of the user's document,
	// starting with the current state. The returned func detaches fn.
	Subscribe(ctx context.Context, userKey string, fn SnapshotFunc) (func(), error)
}
