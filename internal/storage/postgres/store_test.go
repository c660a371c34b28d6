package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"tasksync/internal/models"
	"tasksync/internal/storage"
)

// Integration-style test: runs only if TODO_TEST_DATABASE_URL is set.
func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TODO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TODO_TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	key := "test-" + uuid.NewString()
	if _, err := store.GetDocument(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetDocument() error = %v, want ErrNotFound", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	task := models.Task{ID: "1", Text: "Buy milk", Priority: models.PriorityMedium, Category: models.CategoryShopping, CreatedAt: now, UpdatedAt: now}

	first, err := store.PutDocument(ctx, key, []models.Task{task})
	if err != nil {
		t.Fatalf("PutDocument() failed: %v", err)
	}
	second, err := store.PutDocument(ctx, key, []models.Task{task})
	if err != nil {
		t.Fatalf("PutDocument() failed: %v", err)
	}
	if second.Revision != first.Revision+1 {
		t.Errorf("revision %d -> %d, want increment by one", first.Revision, second.Revision)
	}

	got, err := store.GetDocument(ctx, key)
	if err != nil {
		t.Fatalf("GetDocument() failed: %v", err)
	}
	if len(got.Todos) != 1 || got.Todos[0].Text != "Buy milk" {
		t.Errorf("GetDocument() todos = %+v", got.Todos)
	}
}
