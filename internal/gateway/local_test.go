package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"tasksync/internal/models"
	"tasksync/internal/storage/sqlite"
)

func newLocalPair(t *testing.T) (*Local, *Local) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "todo.db"), logger)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hub := NewHub()
	return NewLocal(store, hub, logger), NewLocal(store, hub, logger)
}

func task(id, text string) models.Task {
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return models.Task{ID: id, Text: text, Priority: models.PriorityLow, Category: models.CategoryWork, CreatedAt: at, UpdatedAt: at}
}

func TestLocal_ReadMissingDocument(t *testing.T) {
	gw, _ := newLocalPair(t)

	_, err := gw.Read(context.Background(), "alice")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestLocal_SubscribeStartsWithEmptyDocument(t *testing.T) {
	gw, _ := newLocalPair(t)
	rec := &recorder{}

	unsubscribe, err := gw.Subscribe(context.Background(), "alice", rec.fn)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer unsubscribe()

	if rec.count() != 1 {
		t.Fatalf("deliveries = %d, want the initial snapshot", rec.count())
	}
	if len(rec.docs[0].Todos) != 0 || rec.metas[0].PendingWrite {
		t.Errorf("initial snapshot = %+v %+v", rec.docs[0], rec.metas[0])
	}
}

func TestLocal_WriterSeesPendingEchoThenConfirmation(t *testing.T) {
	writer, other := newLocalPair(t)
	ctx := context.Background()
	mine, theirs := &recorder{}, &recorder{}

	unsubMine, err := writer.Subscribe(ctx, "alice", mine.fn)
	if err != nil {
		t.Fatal(err)
	}
	defer unsubMine()
	unsubTheirs, err := other.Subscribe(ctx, "alice", theirs.fn)
	if err != nil {
		t.Fatal(err)
	}
	defer unsubTheirs()

	doc := models.Document{Todos: []models.Task{task("1", "Buy milk")}}
	if err := writer.Write(ctx, "alice", doc); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	// initial, pending echo, confirmation
	if mine.count() != 3 {
		t.Fatalf("writer deliveries = %d, want 3", mine.count())
	}
	if !mine.metas[1].PendingWrite || mine.metas[2].PendingWrite {
		t.Errorf("writer metadata = %+v", mine.metas)
	}
	if mine.docs[2].Revision != 1 {
		t.Errorf("confirmed revision = %d, want 1", mine.docs[2].Revision)
	}

	// initial, confirmation; the other client never sees the echo
	if theirs.count() != 2 {
		t.Fatalf("other deliveries = %d, want 2", theirs.count())
	}
	if theirs.metas[1].PendingWrite || len(theirs.docs[1].Todos) != 1 {
		t.Errorf("other client got %+v %+v", theirs.docs[1], theirs.metas[1])
	}

	got, err := other.Read(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Todos) != 1 || got.Todos[0].Text != "Buy milk" {
		t.Errorf("Read() = %+v", got)
	}
}

func TestLocal_WriteHonoursCancelledContext(t *testing.T) {
	gw, _ := newLocalPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gw.Write(ctx, "alice", models.Document{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Write() error = %v, want context.Canceled", err)
	}
}

func TestLocal_UnsubscribeStopsDeliveries(t *testing.T) {
	gw, _ := newLocalPair(t)
	ctx := context.Background()
	rec := &recorder{}

	unsubscribe, err := gw.Subscribe(ctx, "alice", rec.fn)
	if err != nil {
		t.Fatal(err)
	}
	unsubscribe()

	if err := gw.Write(ctx, "alice", models.Document{Todos: []models.Task{task("1", "x")}}); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 1 {
		t.Errorf("deliveries = %d after unsubscribe, want only the initial one", rec.count())
	}
}
