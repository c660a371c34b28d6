package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tasksync/internal/auth"
	"tasksync/internal/gateway"
	"tasksync/internal/storage"
)

// Config wires the server's collaborators.
type Config struct {
	Store storage.Store

	// Hub fans confirmed writes out to websocket subscribers. Nil creates
	// a private one.
	Hub *gateway.Hub

	// Verifier checks bearer tokens. Nil disables authentication.
	Verifier *auth.Verifier

	Logger *slog.Logger

	// StaticDir holds the built frontend; empty runs API only.
	StaticDir string

	// AllowedOrigin restricts websocket origins; empty allows any.
	AllowedOrigin string
}

// Server exposes per-user task documents over HTTP and websockets.
type Server struct {
	engine    *gin.Engine
	store     storage.Store
	hub       *gateway.Hub
	verifier  *auth.Verifier
	logger    *slog.Logger
	staticDir string
	upgrader  websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
}

// New constructs the HTTP server with routes and middleware configured.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = gateway.NewHub()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))
	router.Use(countRequests)

	allowedOrigin := cfg.AllowedOrigin
	srv := &Server{
		engine:    router,
		store:     cfg.Store,
		hub:       hub,
		verifier:  cfg.Verifier,
		logger:    logger,
		staticDir: cfg.StaticDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		quit: make(chan struct{}),
	}

	if srv.verifier == nil {
		logger.Warn("no JWT secret configured; documents are readable and writable by anyone")
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Hub returns the hub that broadcasts confirmed writes.
func (s *Server) Hub() *gateway.Hub {
	return s.hub
}

// Close ends every open websocket subscription. http.Server.Shutdown does
// not track hijacked connections, so call Close before it.
func (s *Server) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		documents := api.Group("/documents/:key", s.requireUser)
		{
			documents.GET("", s.handleGetDocument)
			documents.PUT("", s.handlePutDocument)
			documents.GET("/subscribe", s.handleSubscribe)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// userKey returns the document key of the request path.
func userKey(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user key is required"})
		return "", false
	}
	return key, true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess writes payload as JSON, or only the status when it is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
