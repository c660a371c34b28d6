package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tasksync/internal/gateway"
	"tasksync/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// handleSubscribe streams the caller's document over a websocket: the
// current state first, then every confirmed change.
func (s *Server) handleSubscribe(c *gin.Context) {
	key := c.GetString(userKeyContext)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("user", key), slog.String("error", err.Error()))
		return
	}

	client := newWatcher(conn)
	ctx := c.Request.Context()
	unsubscribe, err := s.hub.Subscribe(key, func() (models.Document, error) {
		return s.loadDocument(ctx, key)
	}, client.offer)
	if err != nil {
		s.logger.Error("failed to load document for subscriber", slog.String("user", key), slog.String("error", err.Error()))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "load failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	activeSubscriptions.Inc()
	s.logger.Info("subscriber attached", slog.String("user", key))
	defer func() {
		unsubscribe()
		activeSubscriptions.Dec()
		s.logger.Info("subscriber detached", slog.String("user", key))
	}()

	go client.readPump()
	client.writePump(s.quit, s.logger)
}

// watcher is one websocket subscriber. Each snapshot is a full document,
// so a slow reader only ever needs the newest one.
type watcher struct {
	conn *websocket.Conn
	send chan models.Document
	done chan struct{}
	once sync.Once
}

func newWatcher(conn *websocket.Conn) *watcher {
	return &watcher{
		conn: conn,
		send: make(chan models.Document, 1),
		done: make(chan struct{}),
	}
}

// offer queues doc, replacing a snapshot the writer has not sent yet.
func (w *watcher) offer(doc models.Document, _ gateway.Metadata) {
	select {
	case w.send <- doc:
		return
	default:
	}
	select {
	case <-w.send:
	default:
	}
	select {
	case w.send <- doc:
	default:
	}
}

func (w *watcher) stop() {
	w.once.Do(func() { close(w.done) })
}

// readPump drains client frames so pongs and close frames are processed.
func (w *watcher) readPump() {
	defer w.stop()

	w.conn.SetReadLimit(4096)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (w *watcher) writePump(quit <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.stop()
		_ = w.conn.Close()
	}()

	for {
		select {
		case doc := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteJSON(doc); err != nil {
				logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-quit:
			_ = w.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-w.done:
			return
		}
	}
}
