// Package server exposes flows, the gallery and shopping carts over HTTP
// using gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/flow"
	"github.com/hupe1980/decalflow/gallery"
	"github.com/hupe1980/decalflow/logging"
	"github.com/hupe1980/decalflow/session"
)

// Options configure a Server.
type Options struct {
	Gallery  gallery.Store
	Sessions core.SessionStore
	Logger   logging.Logger
	// AdminToken protects moderation endpoints with a bearer token. Empty
	// disables the check.
	AdminToken string
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// Server is the HTTP surface.
type Server struct {
	engine   *gin.Engine
	invoker  *flow.Invoker
	gallery  gallery.Store
	sessions core.SessionStore
	logger   logging.Logger
	opts     Options
}

// New creates a Server and registers its routes.
func New(invoker *flow.Invoker, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Gallery == nil {
		opts.Gallery = gallery.NewInMemoryStore()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(opts.Logger))

	s := &Server{
		engine:   engine,
		invoker:  invoker,
		gallery:  opts.Gallery,
		sessions: opts.Sessions,
		logger:   opts.Logger,
		opts:     opts,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	s.engine.GET("/flows", s.listFlows)
	s.engine.POST("/flows/:name", s.invokeFlow)

	s.engine.GET("/gallery", s.listDesigns)
	s.engine.GET("/gallery/:id", s.getDesign)
	s.engine.PATCH("/gallery/:id", s.requireAdmin(s.moderateDesign))

	s.engine.GET("/sessions/:id/cart", s.getCart)
	s.engine.POST("/sessions/:id/cart", s.addToCart)
	s.engine.DELETE("/sessions/:id/cart", s.removeFromCart)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.server.start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http.server.shutdown", "addr", addr)
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) requireAdmin(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.AdminToken != "" && c.GetHeader("Authorization") != "Bearer "+s.opts.AdminToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "Unauthorized", "message": "admin token required"}})
			return
		}
		next(c)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "flows": len(s.invoker.Registry().List())})
}
