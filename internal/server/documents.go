package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasksync/internal/gateway"
	"tasksync/internal/models"
	"tasksync/internal/storage"
	"tasksync/internal/tasks"
)

const maxDocumentBytes = 1 << 20

type documentRequest struct {
	Todos *[]models.Task `json:"todos"`
}

// handleGetDocument returns the caller's document.
func (s *Server) handleGetDocument(c *gin.Context) {
	key := c.GetString(userKeyContext)

	doc, err := s.store.GetDocument(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"document": doc})
}

// handlePutDocument replaces the caller's task list and broadcasts the
// stored document to every subscriber of the key.
func (s *Server) handlePutDocument(c *gin.Context) {
	key := c.GetString(userKeyContext)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes)

	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		documentWrites.WithLabelValues("invalid").Inc()
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Todos == nil {
		documentWrites.WithLabelValues("invalid").Inc()
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("todos is required"))
		return
	}
	if err := tasks.Validate(*req.Todos); err != nil {
		documentWrites.WithLabelValues("invalid").Inc()
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	saved, err := s.store.PutDocument(c.Request.Context(), key, *req.Todos)
	if err != nil {
		documentWrites.WithLabelValues("error").Inc()
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	documentWrites.WithLabelValues("ok").Inc()

	s.hub.Publish(key, saved, gateway.Metadata{})
	s.logger.Info("document updated",
		slog.String("user", key),
		slog.Int64("revision", saved.Revision),
		slog.Int("todos", len(saved.Todos)))

	respondSuccess(c, http.StatusOK, gin.H{"document": saved})
}

// loadDocument returns the stored document, or an empty one for a user
// who never wrote.
func (s *Server) loadDocument(ctx context.Context, key string) (models.Document, error) {
	doc, err := s.store.GetDocument(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Document{Todos: []models.Task{}}, nil
	}
	return doc, err
}
