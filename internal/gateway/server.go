// Package gateway serves sessions over HTTP and WebSocket.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/config"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
)

const shutdownTimeout = 10 * time.Second

// ToolCatalog describes the registered tools.
type ToolCatalog interface {
	Definitions() []map[string]any
}

// Server is the gin engine plus the session pool behind it.
type Server struct {
	cfg      config.GatewayConfig
	pool     *Pool
	tools    ToolCatalog
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader
	started  time.Time
}

// NewServer wires the routes. gatherer may be nil to use the default
// Prometheus registry.
func NewServer(cfg config.GatewayConfig, pool *Pool, tools ToolCatalog, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		pool:     pool,
		tools:    tools,
		gatherer: gatherer,
		logger:   logger.With("component", "gateway"),
		engine:   gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		started: time.Now(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	if cfg.CORS {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
		corsConfig.AllowWebSockets = true
		s.engine.Use(cors.New(corsConfig))
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api")
	api.GET("/tools", s.handleTools)
	sessions := api.Group("/sessions")
	{
		sessions.GET("/:id", s.handleSession)
		sessions.GET("/:id/actions", s.handleActions)
		sessions.POST("/:id/messages", s.handleMessage)
	}
}

// Handler exposes the engine, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on cfg.Addr. Blocks until ctx is cancelled, then shuts the
// server down and archives the pooled sessions.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway: listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("gateway: listen %s: %w", s.cfg.Addr, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("gateway: shutdown", "err", err)
	}
	s.pool.Close()
	s.logger.Info("gateway: stopped")
	return ctx.Err()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	Session  string                `json:"session"`
	Messages []session.ChatMessage `json:"messages"`
	Actions  []session.Action      `json:"actions"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.pool.Len(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.tools.Definitions()})
}

func (s *Server) lookup(c *gin.Context) (*agent.Orchestrator, bool) {
	id := c.Param("id")
	o, ok := s.pool.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("session %q not found", id)})
	}
	return o, ok
}

func (s *Server) handleSession(c *gin.Context) {
	if o, ok := s.lookup(c); ok {
		c.JSON(http.StatusOK, o.Session())
	}
}

func (s *Server) handleActions(c *gin.Context) {
	if o, ok := s.lookup(c); ok {
		c.JSON(http.StatusOK, gin.H{"session": o.ID(), "actions": o.Actions()})
	}
}

func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	resp, err := s.process(c.Request.Context(), c.Param("id"), req.Content)
	switch {
	case errors.Is(err, agent.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, agent.ErrBusy):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// process runs one message and returns the messages and actions it added.
func (s *Server) process(ctx context.Context, id, content string) (messageResponse, error) {
	o := s.pool.GetOrCreate(id)
	ex, err := o.Process(ctx, content)
	if err != nil {
		return messageResponse{}, err
	}
	return messageResponse{Session: o.ID(), Messages: ex.Messages, Actions: ex.Actions}, nil
}
