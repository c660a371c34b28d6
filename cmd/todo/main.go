package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tasksync/internal/auth"
	"tasksync/internal/gateway"
	"tasksync/internal/server"
	"tasksync/internal/storage"
	"tasksync/internal/storage/postgres"
	"tasksync/internal/storage/sqlite"
	"tasksync/internal/util"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	addrFlag := flag.String("addr", util.EnvOrDefault("TODO_ADDR", ":8080"), "HTTP listen address")
	driverFlag := flag.String("driver", util.EnvOrDefault("TODO_DB_DRIVER", "sqlite"), "Document store: sqlite or postgres")
	dbFlag := flag.String("db", util.EnvOrDefault("TODO_DB_PATH", "data/todo.db"), "Path to sqlite database file")
	dsnFlag := flag.String("dsn", util.EnvOrDefault("DATABASE_URL", ""), "Postgres connection string")
	staticFlag := flag.String("static", util.EnvOrDefault("TODO_STATIC_DIR", "web/dist"), "Directory with built frontend")
	originFlag := flag.String("allowed-origin", util.EnvOrDefault("TODO_ALLOWED_ORIGIN", ""), "Allowed websocket origin (empty allows any)")
	levelFlag := flag.String("log-level", util.EnvOrDefault("TODO_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logFileFlag := flag.String("log-file", util.EnvOrDefault("TODO_LOG_FILE", ""), "Rotated log file (default stdout)")
	flag.Parse()

	logger, closer, err := util.NewLogger(os.Stdout, *levelFlag, *logFileFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	store, err := openStore(*driverFlag, *dbFlag, *dsnFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("driver", *driverFlag), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	srv := server.New(server.Config{
		Store:         store,
		Hub:           gateway.NewHub(),
		Verifier:      auth.NewVerifier(os.Getenv("TODO_JWT_SECRET")),
		Logger:        logger,
		StaticDir:     *staticFlag,
		AllowedOrigin: *originFlag,
	})

	httpServer := &http.Server{
		Addr:              *addrFlag,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("driver", *driverFlag))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func openStore(driver, dbPath, dsn string, logger *slog.Logger) (storage.Store, error) {
	switch driver {
	case "sqlite":
		store, err := sqlite.Open(dbPath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver needs -dsn or DATABASE_URL")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := postgres.Open(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}
