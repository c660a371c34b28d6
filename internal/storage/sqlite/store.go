package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tasksync/internal/models"
	"tasksync/internal/storage"
)

// Store wraps access to the SQLite database holding task documents.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("sqlite store ready", slog.String("path", dbPath))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	if strings.HasPrefix(dbPath, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            user_key TEXT PRIMARY KEY,
            todos TEXT NOT NULL DEFAULT '[]',
            revision INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// GetDocument fetches the document stored for userKey.
func (s *Store) GetDocument(ctx context.Context, userKey string) (models.Document, error) {
	var (
		raw string
		doc models.Document
	)
	err := s.db.QueryRowContext(ctx, `SELECT todos, revision, updated_at FROM documents WHERE user_key = ?`, userKey).
		Scan(&raw, &doc.Revision, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &doc.Todos); err != nil {
		return models.Document{}, fmt.Errorf("decode todos: %w", err)
	}
	return doc, nil
}

// PutDocument replaces the task list of userKey's document, creating the
// document when missing. Columns other than todos are merged, not reset.
func (s *Store) PutDocument(ctx context.Context, userKey string, todos []models.Task) (models.Document, error) {
	if strings.TrimSpace(userKey) == "" {
		return models.Document{}, fmt.Errorf("user key must not be empty")
	}
	if todos == nil {
		todos = []models.Task{}
	}

	raw, err := json.Marshal(todos)
	if err != nil {
		return models.Document{}, fmt.Errorf("encode todos: %w", err)
	}

	now := time.Now().UTC()
	doc := models.Document{Todos: todos, UpdatedAt: now}
	err = s.db.QueryRowContext(ctx, `INSERT INTO documents(user_key, todos, revision, created_at, updated_at)
        VALUES(?, ?, 1, ?, ?)
        ON CONFLICT(user_key) DO UPDATE SET
            todos = excluded.todos,
            revision = documents.revision + 1,
            updated_at = excluded.updated_at
        RETURNING revision`, userKey, string(raw), now, now).
		Scan(&doc.Revision)
	if err != nil {
		return models.Document{}, fmt.Errorf("put document: %w", err)
	}

	s.logger.Debug("document stored",
		slog.String("user", userKey),
		slog.Int64("revision", doc.Revision),
		slog.Int("todos", len(todos)))
	return doc, nil
}
