package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/model"
	"github.com/kbukum/ssehub/server/middleware"
	"github.com/kbukum/ssehub/sse"
)

// Handlers serves the HTTP routes around one Registry.
type Handlers struct {
	registry  *sse.Registry
	stream    *sse.Handler
	publisher sse.Publisher
	tracker   *model.SessionTracker
	log       *logger.Logger
}

// Option configures Handlers.
type Option func(*Handlers)

// WithPublisher routes published events through p instead of the local
// registry, e.g. a Redis relay that fans out to every instance.
func WithPublisher(p sse.Publisher) Option {
	return func(h *Handlers) {
		if p != nil {
			h.publisher = p
		}
	}
}

// WithTracker enables the history and presence routes.
func WithTracker(t *model.SessionTracker) Option {
	return func(h *Handlers) {
		h.tracker = t
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handlers) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandlers creates handlers for reg. stream serves the event stream route.
func NewHandlers(reg *sse.Registry, stream *sse.Handler, opts ...Option) *Handlers {
	h := &Handlers{
		registry:  reg,
		stream:    stream,
		publisher: reg,
		log:       logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RouteConfig controls route registration.
type RouteConfig struct {
	// StreamPath is where the event stream is served. Defaults to /events.
	StreamPath string
	// PublishRateLimit caps publish requests per caller per minute. 0 disables it.
	PublishRateLimit int
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter, cfg RouteConfig) {
	if cfg.StreamPath == "" {
		cfg.StreamPath = "/events"
	}
	r.GET(cfg.StreamPath, h.stream.GinHandler())

	conns := r.Group("/connections")
	conns.GET("", h.ListConnections)
	conns.GET("/:id", h.GetConnection)
	conns.DELETE("/:id", h.CloseConnection)
	conns.POST("/:id/subscriptions", h.Subscribe)
	conns.DELETE("/:id/subscriptions/:channel", h.Unsubscribe)
	conns.POST("/:id/events", h.SendToConnection)

	publish := []gin.HandlerFunc{}
	if cfg.PublishRateLimit > 0 {
		publish = append(publish, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.PublishRateLimit,
		}))
	}
	publish = append(publish, h.Publish)
	r.POST("/channels/:channel/events", publish...)

	users := r.Group("/users/:user_id")
	users.GET("/history", h.History)
	users.GET("/presence", h.Presence)
}
