// Package postgres stores task documents in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasksync/internal/models"
	"tasksync/internal/storage"
)

// Store keeps documents in a `documents` table with a jsonb task list.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database url")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connected")
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS documents (
        user_key TEXT PRIMARY KEY,
        todos JSONB NOT NULL DEFAULT '[]'::jsonb,
        revision BIGINT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, userKey string) (models.Document, error) {
	var (
		raw []byte
		doc models.Document
	)
	err := s.pool.QueryRow(ctx, `SELECT todos, revision, updated_at FROM documents WHERE user_key = $1`, userKey).
		Scan(&raw, &doc.Revision, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Todos); err != nil {
		return models.Document{}, fmt.Errorf("decode todos: %w", err)
	}
	return doc, nil
}

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

	doc := models.Document{Todos: todos}
	err = s.pool.QueryRow(ctx, `INSERT INTO documents(user_key, todos, revision)
        VALUES($1, $2::jsonb, 1)
        ON CONFLICT(user_key) DO UPDATE SET
            todos = EXCLUDED.todos,
            revision = documents.revision + 1,
            updated_at = now()
        RETURNING revision, updated_at`, userKey, string(raw)).
		Scan(&doc.Revision, &doc.UpdatedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("put document: %w", err)
	}

	s.logger.Debug("document stored",
		slog.String("user", userKey),
		slog.Int64("revision", doc.Revision))
	return doc, nil
}
