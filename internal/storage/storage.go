// Package storage defines the document persistence used by the server and
// by in-process gateways.
package storage

import (
	"context"
	"errors"

	"tasksync/internal/models"
)

// ErrNotFound is returned when no document exists for a user key.
var ErrNotFound = errors.New("document not found")

// Store keeps one task document per user key.
type Store interface {
	// GetDocument returns the stored document or ErrNotFound.
	GetDocument(ctx context.Context, userKey string) (models.Document, error)

	// PutDocument upserts the task list of a document, assigning a new
	// revision and update time, and returns the stored document.
	PutDocument(ctx context.Context, userKey string, todos []models.Task) (models.Document, error)

	Close() error
}
