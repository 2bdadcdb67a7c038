package model

import (
	"context"
	"os"
	"time"

	"github.com/kbukum/ssehub/database"
	"github.com/kbukum/ssehub/database/query"
	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/redis"
	"github.com/kbukum/ssehub/sse"
)

const (
	presencePrefix     = "presence"
	defaultPresenceTTL = 90 * time.Second
	// Storage calls made from stream callbacks give up after this long.
	defaultStorageTimeout = 5 * time.Second
)

// SessionTracker records stream lifecycles: a ConnectionLog row per stream
// in the database, and a Presence entry in Redis while the stream is open.
// Storage failures are logged and never reach the stream.
type SessionTracker struct {
	Base
	presence *redis.TypedStore[Presence]
	ttl      time.Duration
	timeout  time.Duration
	instance string
	log      *logger.Logger
	now      func() time.Time
}

var _ sse.Observer = (*SessionTracker)(nil)

// TrackerOption configures a SessionTracker.
type TrackerOption func(*SessionTracker)

// WithPresenceTTL sets how long a presence entry lives without a keep-alive.
func WithPresenceTTL(ttl time.Duration) TrackerOption {
	return func(t *SessionTracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithStorageTimeout bounds the storage calls made from connection callbacks
// and keep-alives.
func WithStorageTimeout(d time.Duration) TrackerOption {
	return func(t *SessionTracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithInstance sets the instance name stored in presence entries.
func WithInstance(name string) TrackerOption {
	return func(t *SessionTracker) {
		if name != "" {
			t.instance = name
		}
	}
}

// WithTrackerLogger sets the tracker logger.
func WithTrackerLogger(l *logger.Logger) TrackerOption {
	return func(t *SessionTracker) {
		if l != nil {
			t.log = l
		}
	}
}

// NewSessionTracker creates a tracker over base.
func NewSessionTracker(base Base, opts ...TrackerOption) *SessionTracker {
	hostname, _ := os.Hostname()
	t := &SessionTracker{
		Base:     base,
		ttl:      defaultPresenceTTL,
		timeout:  defaultStorageTimeout,
		instance: hostname,
		log:      logger.WithComponent("tracker"),
		now:      time.Now,
	}
	if base.HasKV() {
		t.presence = redis.NewTypedStore[Presence](base.KV, presencePrefix)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ConnectionOpened writes the log row and the presence entry.
func (t *SessionTracker) ConnectionOpened(ctx context.Context, c *sse.Connection) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.HasDB() {
		entry := ConnectionLog{
			ConnectionID:  c.ID(),
			UserID:        c.UserID(),
			SessionID:     c.SessionID(),
			RemoteAddr:    c.Request().RemoteAddr,
			UserAgent:     c.Request().UserAgent(),
			Subscriptions: joinChannels(c.Subscriptions()),
			OpenedAt:      c.ConnectedAt(),
		}
		if err := t.DB.WithContext(ctx).Create(&entry).Error; err != nil {
			t.logStorageError("insert_connection_log", c, database.FromDatabase(err, "connection log"))
		}
	}

	if t.HasKV() {
		p := Presence{
			ConnectionID: c.ID(),
			UserID:       c.UserID(),
			SessionID:    c.SessionID(),
			Instance:     t.instance,
			ConnectedAt:  c.ConnectedAt(),
			LastSeen:     t.now(),
		}
		if err := t.presence.Save(ctx, c.ID(), &p, t.ttl); err != nil {
			t.logStorageError("save_presence", c, err)
			return
		}
		userKey := userPresenceKey(c.UserID())
		if err := t.KV.SAdd(ctx, userKey, c.ID()); err != nil {
			t.logStorageError("add_user_presence", c, err)
			return
		}
		if _, err := t.KV.Expire(ctx, userKey, t.ttl); err != nil {
			t.logStorageError("expire_user_presence", c, err)
		}
	}
}

// ConnectionClosed completes the log row and removes the presence entry.
func (t *SessionTracker) ConnectionClosed(ctx context.Context, c *sse.Connection) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.HasDB() {
		closedAt := t.now()
		err := t.DB.WithContext(ctx).
			Model(&ConnectionLog{}).
			Where("connection_id = ?", c.ID()).
			Updates(map[string]interface{}{
				"closed_at":   closedAt,
				"duration_ms": closedAt.Sub(c.ConnectedAt()).Milliseconds(),
			}).Error
		if err != nil {
			t.logStorageError("close_connection_log", c, database.FromDatabase(err, "connection log"))
		}
	}

	if t.HasKV() {
		if err := t.presence.Delete(ctx, c.ID()); err != nil {
			t.logStorageError("delete_presence", c, err)
		}
		if err := t.KV.SRem(ctx, userPresenceKey(c.UserID()), c.ID()); err != nil {
			t.logStorageError("remove_user_presence", c, err)
		}
	}
}

// Touch refreshes the presence entry of a connection. It is a no-op
// without a key-value store.
func (t *SessionTracker) Touch(ctx context.Context, connectionID string) error {
	if !t.HasKV() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	p, err := t.presence.Load(ctx, connectionID)
	if err != nil {
		return err
	}
	if p == nil {
		return apperrors.NotFound("presence", connectionID)
	}
	p.LastSeen = t.now()
	if err := t.presence.Save(ctx, connectionID, p, t.ttl); err != nil {
		return err
	}
	_, err = t.KV.Expire(ctx, userPresenceKey(p.UserID), t.ttl)
	return err
}

// KeepAliveHook adapts Touch for sse.WithKeepAliveHook.
func (t *SessionTracker) KeepAliveHook(ctx context.Context, c *sse.Connection) {
	if err := t.Touch(ctx, c.ID()); err != nil {
		t.logStorageError("touch_presence", c, err)
	}
}

// OnlineConnections returns the live presence entries of userID across all
// instances. Members whose entry has expired are pruned from the user set.
func (t *SessionTracker) OnlineConnections(ctx context.Context, userID string) ([]Presence, error) {
	if !t.HasKV() {
		return nil, apperrors.ServiceUnavailable("redis")
	}
	userKey := userPresenceKey(userID)
	ids, err := t.KV.SMembers(ctx, userKey)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("redis").WithCause(err)
	}

	out := make([]Presence, 0, len(ids))
	for _, id := range ids {
		p, err := t.presence.Load(ctx, id)
		if err != nil {
			return nil, apperrors.ServiceUnavailable("redis").WithCause(err)
		}
		if p == nil {
			_ = t.KV.SRem(ctx, userKey, id)
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// ListLogs returns the newest connection logs of userID, up to limit.
func (t *SessionTracker) ListLogs(ctx context.Context, userID string, limit int) ([]ConnectionLog, error) {
	if !t.HasDB() {
		return nil, apperrors.ServiceUnavailable("database")
	}
	if limit < 1 || limit > query.MaxPageSize {
		limit = query.MaxPageSize
	}
	var logs []ConnectionLog
	err := t.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("opened_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, database.FromDatabase(err, "connection log")
	}
	return logs, nil
}

// History returns one page of userID's connection logs using list params
// parsed with HistoryQueryConfig.
func (t *SessionTracker) History(ctx context.Context, userID string, params query.Params) (*query.Result[ConnectionLog], error) {
	if !t.HasDB() {
		return nil, apperrors.ServiceUnavailable("database")
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = query.DefaultPageSize
	}
	params.Where("user_id", userID)
	res, err := query.Apply[ConnectionLog](t.DB.WithContext(ctx), params, historyQuery)
	if err != nil {
		return nil, database.FromDatabase(err, "connection log")
	}
	return res, nil
}

func (t *SessionTracker) logStorageError(op string, c *sse.Connection, err error) {
	fields := logger.ErrorFields(op, err)
	fields[logger.FieldConnectionID] = c.ID()
	fields[logger.FieldUserID] = c.UserID()
	t.log.Warn("session tracking failed", fields)
}

func userPresenceKey(userID string) string {
	return presencePrefix + ":user:" + userID
}
