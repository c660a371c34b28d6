package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tasksync/internal/models"
	"tasksync/internal/tasks"
)

// RemoteConfig configures a Remote gateway.
type RemoteConfig struct {
	// BaseURL is the document server root, e.g. http://localhost:8080.
	BaseURL string

	// Token is sent as a bearer token; empty means no authentication.
	Token string

	HTTPClient *http.Client

	// RetryDelay is the pause between websocket reconnect attempts.
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Remote talks to the document server over HTTP and keeps a websocket open
// per subscription.
type Remote struct {
	base    *url.URL
	token   string
	client  *http.Client
	dialer  *websocket.Dialer
	retry   time.Duration
	pending *Hub
	logger  *slog.Logger
}

var _ Gateway = (*Remote)(nil)

func NewRemote(cfg RemoteConfig) (*Remote, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", base.Scheme)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	retry := cfg.RetryDelay
	if retry <= 0 {
		retry = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Remote{
		base:    base,
		token:   cfg.Token,
		client:  client,
		dialer:  websocket.DefaultDialer,
		retry:   retry,
		pending: NewHub(),
		logger:  logger,
	}, nil
}

type documentEnvelope struct {
	Document models.Document `json:"document"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func (r *Remote) documentURL(userKey string) string {
	return r.base.String() + "/api/documents/" + url.PathEscape(userKey)
}

func (r *Remote) Read(ctx context.Context, userKey string) (models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.documentURL(userKey), nil)
	if err != nil {
		return models.Document{}, err
	}

	var env documentEnvelope
	if err := r.do(req, &env); err != nil {
		return models.Document{}, fmt.Errorf("read document: %w", err)
	}
	return env.Document, nil
}

// Write echoes doc to this client's subscribers as a pending snapshot and
// sends it to the server. The server's broadcast confirms it.
func (r *Remote) Write(ctx context.Context, userKey string, doc models.Document) error {
	todos := doc.Todos
	if todos == nil {
		todos = []models.Task{}
	}
	body, err := json.Marshal(map[string]any{"todos": todos})
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	r.pending.Publish(userKey, models.Document{Todos: tasks.Clone(todos)}, Metadata{PendingWrite: true})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.documentURL(userKey), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := r.do(req, nil); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

func (r *Remote) do(req *http.Request, out any) error {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &env) != nil || env.Error == "" {
			env.Error = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Subscribe opens a websocket for userKey. The first dial happens before
// Subscribe returns so connection errors reach the caller; later drops are
// retried until the subscription is cancelled.
func (r *Remote) Subscribe(ctx context.Context, userKey string, fn SnapshotFunc) (func(), error) {
	conn, err := r.dial(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	unsubPending, _ := r.pending.Subscribe(userKey, nil, fn)
	sub := &subscription{fn: fn}
	holder := &connHolder{conn: conn}

	go r.listen(ctx, userKey, holder, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.close()
			unsubPending()
			holder.close()
		})
	}, nil
}

func (r *Remote) dial(ctx context.Context, userKey string) (*websocket.Conn, error) {
	u := *r.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/documents/" + url.PathEscape(userKey) + "/subscribe"
	if r.token != "" {
		q := u.Query()
		q.Set("token", r.token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := r.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial websocket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return conn, nil
}

func (r *Remote) listen(ctx context.Context, userKey string, holder *connHolder, sub *subscription) {
	for {
		conn := holder.get()
		if conn != nil {
			r.readLoop(conn, sub)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return
		}

		r.logger.Warn("subscription dropped, reconnecting",
			slog.String("user", userKey),
			slog.Duration("retry", r.retry))

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retry):
		}

		next, err := r.dial(ctx, userKey)
		if err != nil {
			r.logger.Warn("reconnect failed", slog.String("user", userKey), slog.String("error", err.Error()))
			holder.set(nil)
			continue
		}
		if !holder.set(next) {
			_ = next.Close()
			return
		}
	}
}

func (r *Remote) readLoop(conn *websocket.Conn, sub *subscription) {
	for {
		var doc models.Document
		if err := conn.ReadJSON(&doc); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				r.logger.Debug("websocket read ended", slog.String("error", err.Error()))
			}
			return
		}
		sub.deliver(doc, Metadata{})
	}
}

// connHolder guards the live connection of a subscription so that
// cancellation can close it from another goroutine.
type connHolder struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (h *connHolder) get() *websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

// set swaps in conn; it reports false once the holder is closed.
func (h *connHolder) set(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conn = conn
	return true
}

func (h *connHolder) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.conn != nil {
		_ = h.conn.Close()
	}
}
