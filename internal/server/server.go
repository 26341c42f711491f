// Package server exposes a Renderer over HTTP.
//
// Routes:
//
//	POST /api/compile    render a snippet, answering with texsnap.Response
//	GET  /api/readiness  toolchain report, 503 when renders cannot succeed
//	GET  /api/health     liveness
//	GET  /metrics        Prometheus exposition
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-texsnap"
	"github.com/alnah/go-texsnap/internal/logging"
)

// Defaults.
const (
	DefaultAddr            = "127.0.0.1:5000"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 15 * time.Second
	ServiceName            = "texsnap"
)

// Renderer renders snippets and reports toolchain readiness.
type Renderer interface {
	Render(ctx context.Context, req texsnap.RenderRequest) (*texsnap.RenderResult, error)
	Readiness(ctx context.Context) *texsnap.Readiness
}

// Config configures a Server. Zero values take defaults.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Limiter        *texsnap.Limiter // nil means no admission control
	QueueTimeout   time.Duration    // max wait for a slot; zero waits until the client leaves
	MaxBodyBytes   int64
	Logger         logrus.FieldLogger
}

// Server is the HTTP adapter.
type Server struct {
	renderer     Renderer
	limiter      *texsnap.Limiter
	queueTimeout time.Duration
	maxBodyBytes int64
	addr         string
	log          logrus.FieldLogger
	engine       *gin.Engine
}

// New creates a Server with its routes registered.
func New(r Renderer, cfg Config) *Server {
	s := &Server{
		renderer:     r,
		limiter:      cfg.Limiter,
		queueTimeout: cfg.QueueTimeout,
		maxBodyBytes: cfg.MaxBodyBytes,
		addr:         cfg.Addr,
		log:          cfg.Logger,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.log == nil {
		s.log = logging.Discard()
	}

	engine := gin.New()
	engine.Use(
		requestID(),
		requestLogger(s.log),
		metricsRecorder(),
		recovery(s.log),
		corsPolicy(cfg.AllowedOrigins),
	)

	api := engine.Group("/api")
	api.POST("/compile", s.handleCompile)
	api.GET("/readiness", s.handleReadiness)
	api.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is done, then shuts
// down gracefully, letting in-flight renders finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.WithField("addr", ln.Addr().String()).Info("server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
