package sse

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/observability"
)

// ErrRegistryClosed is returned by Add after the registry has shut down.
var ErrRegistryClosed = apperrors.New(apperrors.ErrCodeServiceUnavailable, "event stream registry is shutting down", http.StatusServiceUnavailable)

// Observer is notified when connections enter and leave a Registry.
// ConnectionClosed for a connection always runs after its ConnectionOpened
// has returned. Connections evicted by Broadcast are reported on a separate
// goroutine; every other callback runs on the goroutine that changed the
// registry.
type Observer interface {
	ConnectionOpened(ctx context.Context, c *Connection)
	ConnectionClosed(ctx context.Context, c *Connection)
}

// Publisher delivers an event to every connection subscribed to channel,
// locally or across instances.
type Publisher interface {
	Publish(ctx context.Context, channel string, ev Event) error
}

// Result summarizes one Broadcast.
type Result struct {
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
	Evicted   int `json:"evicted"`
}

// Registry tracks the open connections of this process and their
// subscriptions. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	closed bool

	observers []Observer
	metrics   *observability.Metrics
	log       *logger.Logger
	evictSlow bool

	// pending counts eviction notifications still running; Close waits for them.
	pending sync.WaitGroup
}

var _ Publisher = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObserver adds an observer for connection open/close.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithMetrics records connection and delivery metrics.
func WithMetrics(m *observability.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithEvictSlowConsumers makes Broadcast remove connections whose queue is
// full instead of dropping the event for them.
func WithEvictSlowConsumers(evict bool) RegistryOption {
	return func(r *Registry) {
		r.evictSlow = evict
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		conns: make(map[string]*Connection),
		log:   logger.WithComponent("sse"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers c and notifies observers.
func (r *Registry) Add(c *Connection) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if _, exists := r.conns[c.ID()]; exists {
		r.mu.Unlock()
		return apperrors.AlreadyExists("connection").WithDetail("id", c.ID())
	}
	r.conns[c.ID()] = c
	total := len(r.conns)
	r.mu.Unlock()

	ctx := observerContext(c)
	r.metrics.ConnectionOpened(ctx)
	for _, o := range r.observers {
		o.ConnectionOpened(ctx, c)
	}
	c.markOpened()

	r.log.Debug("connection registered", logger.Fields(
		logger.FieldConnectionID, c.ID(),
		logger.FieldUserID, c.UserID(),
		"total", total,
	))
	return nil
}

// Remove unregisters and closes the connection with the given id. It reports
// whether the connection was registered; observers are notified only then.
func (r *Registry) Remove(id string) bool {
	c, ok := r.detach(id)
	if ok {
		r.release(c)
	}
	return ok
}

// detach unregisters and closes the connection without notifying observers.
func (r *Registry) detach(id string) (*Connection, bool) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if ok {
		c.Close()
	}
	return c, ok
}

// releaseLater reports detached connections from a new goroutine, so slow
// observers cannot hold up the caller. After Close it reports inline.
func (r *Registry) releaseLater(conns []*Connection) {
	r.mu.Lock()
	closed := r.closed
	if !closed {
		r.pending.Add(1)
	}
	r.mu.Unlock()

	if closed {
		for _, c := range conns {
			r.release(c)
		}
		return
	}
	go func() {
		defer r.pending.Done()
		for _, c := range conns {
			r.release(c)
		}
	}()
}

func (r *Registry) release(c *Connection) {
	c.Close()
	<-c.opened
	ctx := observerContext(c)
	r.metrics.ConnectionClosed(ctx)
	for _, o := range r.observers {
		o.ConnectionClosed(ctx, c)
	}
	r.log.Debug("connection removed", logger.Fields(
		logger.FieldConnectionID, c.ID(),
		logger.FieldUserID, c.UserID(),
	))
}

// Get returns the connection with the given id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the registered connections at the time of the call.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// ByUser returns the connections opened by userID.
func (r *Registry) ByUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Connection
	for _, c := range r.conns {
		if c.UserID() == userID {
			out = append(out, c)
		}
	}
	return out
}

// Subscribe adds channel to the connection's subscriptions.
func (r *Registry) Subscribe(id, channel string) error {
	c, ok := r.Get(id)
	if !ok {
		return apperrors.NotFound("connection", id)
	}
	if c.Subscribe(channel) {
		r.log.Debug("subscribed", logger.Fields(logger.FieldConnectionID, id, logger.FieldChannel, channel))
	}
	return nil
}

// Unsubscribe removes channel from the connection's subscriptions.
func (r *Registry) Unsubscribe(id, channel string) error {
	c, ok := r.Get(id)
	if !ok {
		return apperrors.NotFound("connection", id)
	}
	if c.Unsubscribe(channel) {
		r.log.Debug("unsubscribed", logger.Fields(logger.FieldConnectionID, id, logger.FieldChannel, channel))
	}
	return nil
}

// Broadcast queues ev on every connection subscribed to channel. Connections
// that turn out to be closed are removed; a full queue drops the event for
// that connection. Delivery failures never propagate to the caller, and
// observers of evicted connections are notified after the fan-out, off the
// calling goroutine.
func (r *Registry) Broadcast(ctx context.Context, channel string, ev Event) Result {
	start := time.Now()
	ctx, span := observability.StartEventSpan(ctx, observability.SpanBroadcast, channel, ev.Type)
	defer span.End()

	var (
		res     Result
		evicted []*Connection
	)
	for _, c := range r.Snapshot() {
		if !c.Matches(channel) {
			continue
		}
		err := c.Send(ev)
		switch {
		case err == nil:
			res.Delivered++
		case stderrors.Is(err, ErrSlowConsumer) && !r.evictSlow:
			res.Dropped++
			r.log.Warn("event dropped for slow consumer", logger.Fields(
				logger.FieldConnectionID, c.ID(),
				logger.FieldChannel, channel,
				logger.FieldEventType, ev.Type,
			))
		default:
			if stderrors.Is(err, ErrSlowConsumer) {
				res.Dropped++
			}
			if gone, ok := r.detach(c.ID()); ok {
				evicted = append(evicted, gone)
			}
		}
	}
	res.Evicted = len(evicted)
	if len(evicted) > 0 {
		r.releaseLater(evicted)
	}

	observability.RecordDelivery(span, res.Delivered, res.Dropped, res.Evicted)
	r.metrics.BroadcastCompleted(ctx, time.Since(start))
	r.metrics.EventsDelivered(ctx, res.Delivered)
	r.metrics.EventsDropped(ctx, res.Dropped)
	r.metrics.ConnectionsEvicted(ctx, res.Evicted)

	r.log.Debug("broadcast", logger.Fields(
		logger.FieldChannel, channel,
		logger.FieldEventType, ev.Type,
		"delivered", res.Delivered,
		"dropped", res.Dropped,
		"evicted", res.Evicted,
	))
	return res
}

// Publish broadcasts locally. It never fails.
func (r *Registry) Publish(ctx context.Context, channel string, ev Event) error {
	r.Broadcast(ctx, channel, ev)
	return nil
}

// SendTo queues ev for one connection. A closed connection is removed and
// ErrConnectionClosed returned.
func (r *Registry) SendTo(ctx context.Context, id string, ev Event) error {
	c, ok := r.Get(id)
	if !ok {
		return apperrors.NotFound("connection", id)
	}
	err := c.Send(ev)
	switch {
	case err == nil:
		r.metrics.EventsDelivered(ctx, 1)
		return nil
	case stderrors.Is(err, ErrSlowConsumer):
		r.metrics.EventsDropped(ctx, 1)
		return err
	default:
		if r.Remove(id) {
			r.metrics.ConnectionsEvicted(ctx, 1)
		}
		return err
	}
}

// Close removes and closes every connection and waits for pending eviction
// notifications. Later Adds fail with ErrRegistryClosed. It is safe to call
// more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for _, c := range conns {
		r.release(c)
	}
	r.pending.Wait()
	r.log.Info("registry closed", logger.Fields("connections", len(conns)))
}

// observerContext keeps request-scoped values but outlives the request, so
// close callbacks can still reach storage after the client is gone.
func observerContext(c *Connection) context.Context {
	return context.WithoutCancel(c.Request().Context())
}
