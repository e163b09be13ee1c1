package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ai-gateway/chat-gateway-go/internal/config"
	"github.com/ai-gateway/chat-gateway-go/internal/gateway"
	"github.com/ai-gateway/chat-gateway-go/internal/guardrails"
	"github.com/ai-gateway/chat-gateway-go/internal/routing"
	"github.com/ai-gateway/chat-gateway-go/internal/store"
)

// Database is the subset of the store used by the HTTP layer.
type Database interface {
	SampleUsers(ctx context.Context) (int, error)
	ListConversations(ctx context.Context, userID string) ([]store.Conversation, error)
}

type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	router     *routing.Router
	gateway    *gateway.Gateway
	normalizer *gateway.Normalizer
	db         Database
	logCtx     context.Context
	now        func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithLogContext sets the context carrying the base logger.
func WithLogContext(ctx context.Context) Option {
	return func(s *Server) { s.logCtx = ctx }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the HTTP server. router must be sealed; db may be nil when no
// database is configured.
func New(cfg *config.Config, router *routing.Router, db Database, opts ...Option) *Server {
	if !cfg.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	gw := gateway.New(router, gateway.Options{
		Timeout:   cfg.UpstreamTimeout,
		Retry:     cfg.Retry,
		RateLimit: rate.Limit(cfg.RateLimit.RPS),
		Burst:     cfg.RateLimit.Burst,
	})
	srv := &Server{
		cfg:        cfg,
		engine:     r,
		router:     router,
		gateway:    gw,
		normalizer: gateway.NewNormalizer(router, guardrails.New(cfg.Guardrails)),
		db:         db,
		logCtx:     context.Background(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(srv)
	}
	r.Use(gin.Recovery(), srv.requestLogger())
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.engine.POST("/chat", s.chat)
	s.engine.GET("/test", s.runConnectionTests)
	s.engine.POST("/test", s.testChat)
	s.engine.GET("/conversations", s.listConversations)
	s.engine.POST("/conversations", s.createConversation)
	s.engine.GET("/models", s.listModels)
	s.engine.GET("/usage", s.usage)
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
}

// Handler exposes the routes, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":   s.router.DefaultID(),
		"providers": s.router.Descriptors(),
	})
}

func (s *Server) usage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"usage": s.gateway.Usage().Snapshot()})
}
