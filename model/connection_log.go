package model

import (
	"strings"
	"time"

	"github.com/kbukum/ssehub/database"
	"github.com/kbukum/ssehub/database/query"
)

// ConnectionLog is the persisted record of one stream.
type ConnectionLog struct {
	database.BaseModel
	ConnectionID  string     `gorm:"size:36;uniqueIndex" json:"connection_id"`
	UserID        string     `gorm:"size:255;index" json:"user_id"`
	SessionID     string     `gorm:"size:255" json:"session_id,omitempty"`
	RemoteAddr    string     `gorm:"size:255" json:"remote_addr"`
	UserAgent     string     `gorm:"size:512" json:"user_agent,omitempty"`
	Subscriptions string     `gorm:"size:2048" json:"subscriptions"`
	OpenedAt      time.Time  `gorm:"index" json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	DurationMs    int64      `json:"duration_ms"`
}

// TableName pins the table name.
func (ConnectionLog) TableName() string { return "connection_logs" }

// IsOpen reports whether the stream has not been closed yet.
func (l ConnectionLog) IsOpen() bool { return l.ClosedAt == nil }

// ToMap returns the log as a plain map.
func (l ConnectionLog) ToMap() map[string]any {
	m := map[string]any{
		"id":            l.ID,
		"connection_id": l.ConnectionID,
		"user_id":       l.UserID,
		"remote_addr":   l.RemoteAddr,
		"subscriptions": splitChannels(l.Subscriptions),
		"opened_at":     l.OpenedAt.UTC().Format(time.RFC3339Nano),
		"open":          l.IsOpen(),
	}
	if l.SessionID != "" {
		m["session_id"] = l.SessionID
	}
	if l.UserAgent != "" {
		m["user_agent"] = l.UserAgent
	}
	if l.ClosedAt != nil {
		m["closed_at"] = l.ClosedAt.UTC().Format(time.RFC3339Nano)
		m["duration_ms"] = l.DurationMs
	}
	return m
}

// historyQuery controls the filters and sorts accepted by History.
var historyQuery = query.Config{
	AllowedSortFields: []string{"opened_at", "closed_at", "duration_ms"},
	AllowedFilters:    []string{"session_id", "closed_at", "opened_at"},
	DefaultSort:       "opened_at DESC",
}

// HistoryQueryConfig returns the query settings for connection history.
func HistoryQueryConfig() query.Config { return historyQuery }

// Models returns the models to auto-migrate.
func Models() []interface{} {
	return []interface{}{&ConnectionLog{}}
}

func joinChannels(channels []string) string {
	return strings.Join(channels, ",")
}

func splitChannels(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
