// Package engine keeps one authoritative task list per session in sync with
// the user's remote document.
//
// Local mutations apply to memory at once and schedule a trailing debounced
// write of the whole list. Remote snapshots are reconciled as they arrive:
// the first one of a session hydrates the list, echoes of this client's
// unconfirmed writes are dropped, and every other snapshot replaces the
// list wholesale.
//
// Sessions are numbered. Timers, snapshots and write results that belong
// to an earlier session are discarded instead of leaking into the current
// one.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tasksync/internal/gateway"
	"tasksync/internal/models"
	"tasksync/internal/tasks"
)

var (
	// ErrNoSession is returned when no session is active.
	ErrNoSession = errors.New("no active session")
	// ErrNotLoaded is returned by mutations before the first snapshot arrived.
	ErrNotLoaded = errors.New("task list not loaded yet")
	// ErrSessionEnded is returned by StartSession when the session was ended
	// while it was still starting.
	ErrSessionEnded = errors.New("session ended while starting")
)

// State is the lifecycle stage of the engine.
type State int

const (
	// StateUninitialized means no session is active.
	StateUninitialized State = iota
	// StateLoading means a session started and awaits its first snapshot.
	StateLoading
	// StateLoaded means the authoritative list is live.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Config holds configuration for the engine.
type Config struct {
	// DebounceInterval is the quiet period after the last mutation before
	// the list is written.
	DebounceInterval time.Duration

	// WriteTimeout bounds each debounced write.
	WriteTimeout time.Duration

	Logger *slog.Logger

	// Clock defaults to the system clock.
	Clock Clock
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: DefaultDebounce,
		WriteTimeout:     10 * time.Second,
		Logger:           slog.Default(),
		Clock:            realClock{},
	}
}

// Engine owns the authoritative task list of the active session.
type Engine struct {
	gw           gateway.Gateway
	debounce     time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
	clock        Clock

	mu          sync.Mutex
	state       State
	userKey     string
	epoch       uint64
	list        []models.Task
	sessionCtx  context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	timer       Timer
	timerGen    uint64
	changed     chan struct{}
}

// New creates an engine over gw. Zero fields of cfg take their defaults.
func New(gw gateway.Gateway, cfg *Config) *Engine {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}

	e := &Engine{
		gw:           gw,
		debounce:     cfg.DebounceInterval,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
		clock:        cfg.Clock,
		changed:      make(chan struct{}),
	}
	if e.debounce <= 0 {
		e.debounce = defaults.DebounceInterval
	}
	if e.writeTimeout <= 0 {
		e.writeTimeout = defaults.WriteTimeout
	}
	if e.logger == nil {
		e.logger = defaults.Logger
	}
	if e.clock == nil {
		e.clock = defaults.Clock
	}
	return e
}

// StartSession makes userKey's document the sync target, ending any active
// session first. The list becomes usable once the first snapshot arrives;
// see WaitLoaded.
//
// If subscribing fails the engine falls back to a one-time read and runs
// without remote updates. An error is returned only when both fail.
func (e *Engine) StartSession(ctx context.Context, userKey string) error {
	if strings.TrimSpace(userKey) == "" {
		return fmt.Errorf("user key must not be empty")
	}
	e.EndSession()

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	e.state = StateLoading
	e.userKey = userKey
	e.list = nil
	e.sessionCtx = sessionCtx
	e.cancel = cancel
	e.notifyLocked()
	e.mu.Unlock()

	e.logger.Info("session started", slog.String("user", userKey))

	unsubscribe, err := e.gw.Subscribe(sessionCtx, userKey, func(doc models.Document, meta gateway.Metadata) {
		e.applySnapshot(epoch, doc, meta)
	})
	if err == nil {
		e.mu.Lock()
		if e.epoch != epoch {
			e.mu.Unlock()
			unsubscribe()
			return ErrSessionEnded
		}
		e.unsubscribe = unsubscribe
		e.mu.Unlock()
		return nil
	}

	e.logger.Warn("subscribe failed, falling back to a one-time read",
		slog.String("user", userKey),
		slog.String("error", err.Error()))

	doc, readErr := e.gw.Read(ctx, userKey)
	if readErr != nil && !errors.Is(readErr, gateway.ErrNotFound) {
		e.mu.Lock()
		var unsub func()
		if e.epoch == epoch {
			unsub = e.endLocked()
		}
		e.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		return fmt.Errorf("start session: %w", errors.Join(err, readErr))
	}

	e.applySnapshot(epoch, doc, gateway.Metadata{})
	return nil
}

// EndSession detaches from the document, cancels a pending write and
// discards the list. It is a no-op without an active session.
func (e *Engine) EndSession() {
	e.mu.Lock()
	if e.state == StateUninitialized {
		e.mu.Unlock()
		return
	}
	userKey := e.userKey
	unsubscribe := e.endLocked()
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.logger.Info("session ended", slog.String("user", userKey))
}

func (e *Engine) endLocked() func() {
	e.epoch++
	e.stopTimerLocked()
	if e.cancel != nil {
		e.cancel()
	}
	unsubscribe := e.unsubscribe

	e.state = StateUninitialized
	e.userKey = ""
	e.list = nil
	e.sessionCtx = nil
	e.cancel = nil
	e.unsubscribe = nil
	e.notifyLocked()
	return unsubscribe
}

// applySnapshot reconciles a remote snapshot delivered for session epoch.
func (e *Engine) applySnapshot(epoch uint64, doc models.Document, meta gateway.Metadata) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch || e.state == StateUninitialized {
		e.logger.Debug("discarding snapshot of an ended session", slog.Int64("revision", doc.Revision))
		return
	}

	d := reconcile(e.state == StateLoaded, meta.PendingWrite)
	if d == decisionDiscard {
		e.logger.Debug("ignoring echo of pending write", slog.String("user", e.userKey))
		return
	}
	if d == decisionHydrate {
		e.state = StateLoaded
	}
	e.list = tasks.Clone(doc.Todos)
	e.notifyLocked()

	e.logger.Debug("snapshot applied",
		slog.String("user", e.userKey),
		slog.String("decision", d.String()),
		slog.Int64("revision", doc.Revision),
		slog.Int("todos", len(e.list)))
}

// scheduleLocked re-arms the debounce timer.
func (e *Engine) scheduleLocked() {
	e.stopTimerLocked()
	epoch, gen := e.epoch, e.timerGen
	e.timer = e.clock.AfterFunc(e.debounce, func() {
		e.persist(epoch, gen)
	})
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerGen++
}

// persist writes the list as it is when the timer fires. A callback whose
// timer was superseded or whose session ended does nothing.
func (e *Engine) persist(epoch, gen uint64) {
	e.mu.Lock()
	if epoch != e.epoch || gen != e.timerGen || e.state != StateLoaded {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.timerGen++
	userKey := e.userKey
	doc := models.Document{Todos: tasks.Clone(e.list)}
	ctx, cancel := context.WithTimeout(e.sessionCtx, e.writeTimeout)
	e.mu.Unlock()
	defer cancel()

	_ = e.write(ctx, epoch, userKey, doc)
}

// write sends doc to the gateway. Failures are logged and never rolled back;
// the next mutation's write supersedes the lost one.
func (e *Engine) write(ctx context.Context, epoch uint64, userKey string, doc models.Document) error {
	err := e.gw.Write(ctx, userKey, doc)

	e.mu.Lock()
	stale := epoch != e.epoch
	e.mu.Unlock()

	if stale {
		e.logger.Debug("discarding write result of an ended session", slog.String("user", userKey))
		return nil
	}
	if err != nil {
		e.logger.Error("failed to persist tasks",
			slog.String("user", userKey),
			slog.String("error", err.Error()))
		return err
	}

	e.logger.Debug("tasks persisted", slog.String("user", userKey), slog.Int("todos", len(doc.Todos)))
	return nil
}

// Flush writes a pending debounced change right away. It does nothing when
// no write is pending.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if err := e.loadedLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.timer == nil {
		e.mu.Unlock()
		return nil
	}
	e.stopTimerLocked()
	epoch, userKey := e.epoch, e.userKey
	doc := models.Document{Todos: tasks.Clone(e.list)}
	e.mu.Unlock()

	if err := e.write(ctx, epoch, userKey, doc); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Pending reports whether a debounced write is scheduled.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer != nil
}

func (e *Engine) loadedLocked() error {
	switch e.state {
	case StateUninitialized:
		return ErrNoSession
	case StateLoading:
		return ErrNotLoaded
	}
	return nil
}

// notifyLocked wakes everyone waiting on Changed.
func (e *Engine) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

// Changed returns a channel closed at the next change of the list or the
// session state.
func (e *Engine) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed
}

// WaitLoaded blocks until the active session is hydrated.
func (e *Engine) WaitLoaded(ctx context.Context) error {
	for {
		e.mu.Lock()
		state, ch := e.state, e.changed
		e.mu.Unlock()

		switch state {
		case StateLoaded:
			return nil
		case StateUninitialized:
			return ErrNoSession
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// UserKey returns the key of the active session, or "".
func (e *Engine) UserKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userKey
}

// Tasks returns a copy of the authoritative list in storage order.
func (e *Engine) Tasks() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return tasks.Clone(e.list)
}

// View returns the filtered list in display order.
func (e *Engine) View(filter models.Filter, query string) []models.Task {
	return tasks.Sort(tasks.Filter(e.Tasks(), filter, query))
}

// Stats aggregates the authoritative list.
func (e *Engine) Stats() models.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return tasks.ComputeStats(e.list)
}
