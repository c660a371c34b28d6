package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"tasksync/internal/engine"
	"tasksync/internal/gateway"
	"tasksync/internal/storage/sqlite"
	"tasksync/internal/util"
)

const loadTimeout = 15 * time.Second

// session is a started engine plus whatever backs its gateway.
type session struct {
	engine *engine.Engine
	logger *slog.Logger
	closer []io.Closer
}

func (o *options) logger() (*slog.Logger, io.Closer, error) {
	return util.NewLogger(os.Stderr, o.logLevel, o.logFile)
}

// openSession builds the gateway for the configured mode, starts the
// user's session and waits for the first snapshot.
func openSession(ctx context.Context, o *options) (*session, error) {
	if o.user == "" {
		return nil, fmt.Errorf("no user: pass --user or set TODO_USER")
	}
	if o.debounce <= 0 {
		return nil, fmt.Errorf("--debounce must be positive, got %s", o.debounce)
	}

	logger, logCloser, err := o.logger()
	if err != nil {
		return nil, err
	}
	s := &session{logger: logger, closer: []io.Closer{logCloser}}

	var gw gateway.Gateway
	if o.server != "" {
		remote, err := gateway.NewRemote(gateway.RemoteConfig{
			BaseURL: o.server,
			Token:   o.token,
			Logger:  logger,
		})
		if err != nil {
			s.close()
			return nil, err
		}
		gw = remote
	} else {
		store, err := sqlite.Open(o.dbPath, logger)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closer = append(s.closer, store)
		gw = gateway.NewLocal(store, nil, logger)
	}

	cfg := engine.DefaultConfig()
	cfg.DebounceInterval = o.debounce
	cfg.Logger = logger
	s.engine = engine.New(gw, cfg)

	if err := s.engine.StartSession(ctx, o.user); err != nil {
		s.close()
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := s.engine.WaitLoaded(waitCtx); err != nil {
		s.engine.EndSession()
		s.close()
		return nil, fmt.Errorf("load tasks for %s: %w", o.user, err)
	}
	return s, nil
}

// finish writes any pending change and ends the session. One-shot
// commands exit right after, so they flush instead of waiting out the
// debounce.
func (s *session) finish(ctx context.Context) error {
	defer s.close()
	defer s.engine.EndSession()

	if err := s.engine.Flush(ctx); err != nil {
		return err
	}
	return nil
}

func (s *session) close() {
	for i := len(s.closer) - 1; i >= 0; i-- {
		_ = s.closer[i].Close()
	}
}

// withSession runs fn against a loaded session and flushes afterwards.
func withSession(ctx context.Context, o *options, fn func(e *engine.Engine) error) error {
	s, err := openSession(ctx, o)
	if err != nil {
		return err
	}
	if err := fn(s.engine); err != nil {
		s.engine.EndSession()
		s.close()
		return err
	}
	return s.finish(ctx)
}
