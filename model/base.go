package model

import (
	"github.com/kbukum/ssehub/database"
	"github.com/kbukum/ssehub/redis"
)

// Base carries the storage handles shared by persistence-backed models:
// one relational handle and one key-value handle. Either may be nil when
// that store is disabled.
type Base struct {
	DB *database.DB
	KV *redis.Client
}

// NewBase creates a Base from the given handles.
func NewBase(db *database.DB, kv *redis.Client) Base {
	return Base{DB: db, KV: kv}
}

// HasDB reports whether a relational handle is configured.
func (b Base) HasDB() bool { return b.DB != nil }

// HasKV reports whether a key-value handle is configured.
func (b Base) HasKV() bool { return b.KV != nil }
