package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/server/endpoint"
	"github.com/kbukum/ssehub/server/middleware"
)

// Server is an HTTP server backed by Gin with optional additional
// http.Handler mounts on the same port. It speaks HTTP/2 cleartext so many
// event streams can share one client connection.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	config     Config
	log        *logger.Logger

	mu          sync.Mutex
	middlewares []middleware.Middleware
	listener    net.Listener
}

// New creates a new Server. The Gin engine is created but no middleware is
// applied yet.
func New(cfg Config, log *logger.Logger) *Server {
	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	engine := gin.New()
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address(),
			ReadTimeout:  seconds(cfg.ReadTimeout),
			WriteTimeout: seconds(cfg.WriteTimeout),
			IdleTimeout:  seconds(cfg.IdleTimeout),
		},
		engine: engine,
		mux:    mux,
		config: cfg,
		log:    log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handle mounts an http.Handler at the given pattern on the root ServeMux.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("Handler mounted", map[string]interface{}{
		"pattern": pattern,
	})
}

// Use appends middleware applied around every route. It must be called
// before Start.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, mws...)
}

// ApplyMiddleware installs the standard stack: recovery, request id, CORS,
// body-size limit and request logging.
func (s *Server) ApplyMiddleware() {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(&s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
	)
}

// RegisterDefaultEndpoints registers /health, /alive, /ready, /info, /version and /metrics.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/alive", endpoint.Liveness(serviceName))
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/info", endpoint.Info(serviceName))
	s.engine.GET("/version", endpoint.Version())
	s.engine.GET("/metrics", endpoint.Metrics())
}

// ApplyDefaults applies the standard middleware stack and registers default endpoints.
func (s *Server) ApplyDefaults(serviceName string, checker endpoint.HealthChecker) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(serviceName, checker)
}

// Handler returns the fully wrapped handler: middleware around the root mux,
// behind h2c.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildHandler()
}

// buildHandler composes the handler. Callers hold mu.
func (s *Server) buildHandler() http.Handler {
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          seconds(s.config.IdleTimeout),
	}
	return h2c.NewHandler(middleware.Chain(s.middlewares...)(s.mux), h2s)
}

// RegisterOnShutdown registers fn to run when Stop begins. Long-lived
// streams use it to end themselves so shutdown does not wait on them.
func (s *Server) RegisterOnShutdown(fn func()) {
	s.httpServer.RegisterOnShutdown(fn)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server already started on %s", s.listener.Addr())
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	s.httpServer.Handler = s.buildHandler()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop gracefully shuts down the server. Connections still open when the
// shutdown timeout expires are closed forcibly.
func (s *Server) Stop(ctx context.Context) error {
	if !s.Running() {
		return nil
	}
	s.log.Info("Shutting down HTTP server")

	timeout := seconds(s.config.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		_ = s.httpServer.Close()
		s.log.Error("Server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Running reports whether Start has bound a listener.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
