package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
)

const defaultKeepAlive = 30 * time.Second

// ConnectedEvent is the payload of the first event on every stream.
type ConnectedEvent struct {
	ConnectionID  string   `json:"connection_id"`
	UserID        string   `json:"user_id"`
	SessionID     string   `json:"session_id,omitempty"`
	Subscriptions []string `json:"subscriptions"`
}

// IdentityFunc extracts the user and session ids from a stream request.
type IdentityFunc func(r *http.Request) (userID, sessionID string)

// HeaderIdentity reads X-User-ID / X-Session-ID, falling back to the user_id
// and session_id query parameters. It trusts an upstream gateway to have
// authenticated the caller.
func HeaderIdentity(r *http.Request) (userID, sessionID string) {
	userID = r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	sessionID = r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
	}
	return strings.TrimSpace(userID), strings.TrimSpace(sessionID)
}

// Handler serves the event stream endpoint.
type Handler struct {
	registry    *Registry
	identity    IdentityFunc
	validate    func(channel string) error
	keepAlive   time.Duration
	retry       time.Duration
	connOpts    []ConnectionOption
	onKeepAlive func(ctx context.Context, c *Connection)
	log         *logger.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithIdentity replaces HeaderIdentity.
func WithIdentity(fn IdentityFunc) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.identity = fn
		}
	}
}

// WithChannelValidator checks channel names given in the query string.
func WithChannelValidator(fn func(channel string) error) HandlerOption {
	return func(h *Handler) {
		h.validate = fn
	}
}

// WithKeepAlive sets the keep-alive comment interval.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithRetry sets the reconnect delay advertised in the connected event.
func WithRetry(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.retry = d
	}
}

// WithConnectionOptions applies opts to every connection the handler creates.
func WithConnectionOptions(opts ...ConnectionOption) HandlerOption {
	return func(h *Handler) {
		h.connOpts = append(h.connOpts, opts...)
	}
}

// WithKeepAliveHook runs fn after every successful keep-alive.
func WithKeepAliveHook(fn func(ctx context.Context, c *Connection)) HandlerOption {
	return func(h *Handler) {
		h.onKeepAlive = fn
	}
}

// NewHandler creates a stream handler that registers connections in reg.
func NewHandler(reg *Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry:  reg,
		identity:  HeaderIdentity,
		keepAlive: defaultKeepAlive,
		log:       logger.WithComponent("sse"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP opens a stream for the caller and blocks until it ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, apperrors.Internal(nil).WithDetail("reason", "streaming not supported"))
		return
	}

	userID, sessionID := h.identity(r)
	opts := append([]ConnectionOption{}, h.connOpts...)
	if sessionID != "" {
		opts = append(opts, WithSessionID(sessionID))
	}
	conn, err := NewConnection(w, r, userID, opts...)
	if err != nil {
		writeError(w, err)
		return
	}

	for _, channel := range r.URL.Query()["channel"] {
		if h.validate != nil {
			if err := h.validate(channel); err != nil {
				writeError(w, err)
				return
			}
		}
		conn.Subscribe(channel)
	}

	if err := h.registry.Add(conn); err != nil {
		writeError(w, err)
		return
	}
	defer h.registry.Remove(conn.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := h.log.WithFields(logger.Fields(
		logger.FieldConnectionID, conn.ID(),
		logger.FieldUserID, conn.UserID(),
	))

	connected, err := NewJSONEvent(EventTypeConnected, ConnectedEvent{
		ConnectionID:  conn.ID(),
		UserID:        conn.UserID(),
		SessionID:     conn.SessionID(),
		Subscriptions: conn.Subscriptions(),
	})
	if err != nil {
		log.Error("encode connected event", logger.ErrorFields("connect", err))
		return
	}
	connected.ID = conn.ID()
	connected.Retry = h.retry
	if err := conn.Write(connected); err != nil {
		log.Debug("stream closed before connected event", logger.ErrorFields("connect", err))
		return
	}

	log.Debug("stream opened", logger.Fields("remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("reason", ctx.Err().Error()))
			return

		case <-conn.Done():
			log.Debug("connection closed by server")
			return

		case ev := <-conn.Events():
			if err := conn.Write(ev); err != nil {
				log.Debug("write failed", logger.ErrorFields("write", err))
				return
			}

		case <-keepAlive.C:
			if err := conn.WriteComment("keepalive"); err != nil {
				log.Debug("keep-alive failed", logger.ErrorFields("keepalive", err))
				return
			}
			if h.onKeepAlive != nil {
				h.onKeepAlive(context.WithoutCancel(ctx), conn)
			}
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr.ToResponse())
}
