package sse

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/ssehub/errors"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
)

var (
	// ErrInvalidIdentity is returned when a stream is opened without a user id.
	ErrInvalidIdentity = apperrors.New(apperrors.ErrCodeInvalidIdentity, "a non-empty user id is required", http.StatusBadRequest)
	// ErrConnectionClosed is returned by writes and sends after Close or a transport failure.
	ErrConnectionClosed = apperrors.New(apperrors.ErrCodeConnectionClosed, "connection is closed", http.StatusGone)
	// ErrSlowConsumer is returned by Send when the outbound queue is full.
	ErrSlowConsumer = apperrors.New(apperrors.ErrCodeSlowConsumer, "connection outbound queue is full", http.StatusServiceUnavailable)
)

// Connection is one client's live event stream: its identity, the transport
// handles of the request that opened it, and the channels it listens to.
type Connection struct {
	id          string
	userID      string
	sessionID   string
	hasSession  bool
	metadata    map[string]string
	connectedAt time.Time

	request  *http.Request
	response http.ResponseWriter
	rc       *http.ResponseController

	writeTimeout time.Duration
	queueSize    int

	mu            sync.RWMutex
	subscriptions []string

	writeMu   sync.Mutex
	outbound  chan Event
	done      chan struct{}
	closeOnce sync.Once

	// opened is closed once observers have seen the connection open.
	opened   chan struct{}
	openOnce sync.Once
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithSessionID attaches the user's browser/app session id.
func WithSessionID(sessionID string) ConnectionOption {
	return func(c *Connection) {
		c.sessionID = sessionID
		c.hasSession = true
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) ConnectionOption {
	return func(c *Connection) {
		c.metadata[key] = value
	}
}

// WithQueueSize sets the outbound buffer size.
func WithQueueSize(n int) ConnectionOption {
	return func(c *Connection) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithWriteTimeout sets the deadline applied to every write. Zero disables it.
func WithWriteTimeout(d time.Duration) ConnectionOption {
	return func(c *Connection) {
		c.writeTimeout = d
	}
}

// NewConnection creates a connection for the given request/response pair.
// It fails with ErrInvalidIdentity when userID is empty.
func NewConnection(w http.ResponseWriter, r *http.Request, userID string, opts ...ConnectionOption) (*Connection, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidIdentity
	}
	if w == nil || r == nil {
		return nil, apperrors.Internal(errors.New("sse: connection requires a request and a response"))
	}

	c := &Connection{
		id:            uuid.NewString(),
		userID:        userID,
		metadata:      make(map[string]string),
		connectedAt:   time.Now(),
		request:       r,
		response:      w,
		rc:            http.NewResponseController(w),
		writeTimeout:  defaultWriteTimeout,
		queueSize:     defaultQueueSize,
		subscriptions: make([]string, 0),
		done:          make(chan struct{}),
		opened:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.outbound = make(chan Event, c.queueSize)
	return c, nil
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// UserID returns the authenticated user id.
func (c *Connection) UserID() string { return c.userID }

// SessionID returns the session id, or "" when none was supplied.
func (c *Connection) SessionID() string { return c.sessionID }

// HasSession reports whether a session id was supplied.
func (c *Connection) HasSession() bool { return c.hasSession }

// ConnectedAt returns when the connection was created.
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// Request returns the inbound request that opened the stream.
func (c *Connection) Request() *http.Request { return c.request }

// Metadata returns a copy of the connection metadata.
func (c *Connection) Metadata() map[string]string {
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Subscribe adds channel to the subscription list. It reports whether the
// list changed; subscribing twice is a no-op.
func (c *Connection) Subscribe(channel string) bool {
	if channel == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subscriptions {
		if s == channel {
			return false
		}
	}
	c.subscriptions = append(c.subscriptions, channel)
	return true
}

// Unsubscribe removes channel. Removing an absent channel is a no-op.
func (c *Connection) Unsubscribe(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subscriptions {
		if s == channel {
			c.subscriptions = append(c.subscriptions[:i], c.subscriptions[i+1:]...)
			return true
		}
	}
	return false
}

// IsSubscribed reports whether channel is in the subscription list.
func (c *Connection) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.subscriptions {
		if s == channel {
			return true
		}
	}
	return false
}

// Matches reports whether an event published to channel should reach this
// connection. Subscriptions may be glob patterns such as "orders:*".
func (c *Connection) Matches(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.subscriptions {
		if s == channel {
			return true
		}
		if strings.ContainsAny(s, "*?[") {
			if ok, err := path.Match(s, channel); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Subscriptions returns a copy of the ordered subscription list.
func (c *Connection) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.subscriptions))
	copy(out, c.subscriptions)
	return out
}

// Send queues ev for the stream loop without blocking. It returns
// ErrConnectionClosed after Close and ErrSlowConsumer when the queue is full.
func (c *Connection) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.outbound <- ev:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSlowConsumer
	}
}

// Events returns the outbound queue drained by the stream loop.
func (c *Connection) Events() <-chan Event { return c.outbound }

// Done is closed when the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close marks the connection closed. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) markOpened() {
	c.openOnce.Do(func() {
		close(c.opened)
	})
}

// Write serializes ev straight to the response and flushes it. A transport
// failure closes the connection.
func (c *Connection) Write(ev Event) error {
	return c.write(func() error {
		_, err := ev.WriteTo(c.response)
		return err
	})
}

// WriteComment writes an SSE comment line, used for keep-alives.
func (c *Connection) WriteComment(text string) error {
	return c.write(func() error {
		return writeComment(c.response, text)
	})
}

func (c *Connection) write(fn func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.IsClosed() {
		return ErrConnectionClosed
	}
	if c.writeTimeout > 0 {
		if err := c.rc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return c.fail(err)
		}
	}
	if err := fn(); err != nil {
		return c.fail(err)
	}
	if err := c.rc.Flush(); err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Connection) fail(cause error) error {
	c.Close()
	return ErrConnectionClosed.Clone().WithCause(fmt.Errorf("connection %s: %w", c.id, cause))
}

// ToMap returns a serializable view of the connection.
func (c *Connection) ToMap() map[string]any {
	m := map[string]any{
		"id":            c.id,
		"user_id":       c.userID,
		"subscriptions": c.Subscriptions(),
		"connected_at":  c.connectedAt.UTC().Format(time.RFC3339Nano),
		"remote_addr":   c.request.RemoteAddr,
	}
	if c.hasSession {
		m["session_id"] = c.sessionID
	}
	if len(c.metadata) > 0 {
		m["metadata"] = c.Metadata()
	}
	return m
}
