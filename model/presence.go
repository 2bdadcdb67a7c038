package model

import "time"

// Presence is the short-lived record of a connection currently open on some
// instance. It expires unless refreshed by keep-alives.
type Presence struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Instance     string    `json:"instance"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// ToMap returns the presence as a plain map.
func (p Presence) ToMap() map[string]any {
	m := map[string]any{
		"connection_id": p.ConnectionID,
		"user_id":       p.UserID,
		"instance":      p.Instance,
		"connected_at":  p.ConnectedAt.UTC().Format(time.RFC3339Nano),
		"last_seen":     p.LastSeen.UTC().Format(time.RFC3339Nano),
	}
	if p.SessionID != "" {
		m["session_id"] = p.SessionID
	}
	return m
}
