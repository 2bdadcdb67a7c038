package redis

import (
	"context"
	"fmt"
	"time"
)

// TypedStore provides typed JSON-serialized get/set operations on Redis.
type TypedStore[C any] struct {
	client    *Client
	keyPrefix string
}

// NewTypedStore creates a TypedStore backed by the given Redis client.
// All keys are prefixed with keyPrefix followed by a colon separator.
func NewTypedStore[C any](client *Client, keyPrefix string) *TypedStore[C] {
	return &TypedStore[C]{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *TypedStore[C]) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load deserializes JSON from Redis. Returns (nil, nil) if key doesn't exist.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	var val C
	if err := s.client.GetJSON(ctx, s.fullKey(key), &val); err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}
	return &val, nil
}

// Save serializes to JSON and stores with TTL. TTL of 0 means no expiration.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	if err := s.client.SetJSON(ctx, s.fullKey(key), val, ttl); err != nil {
		return fmt.Errorf("typed store save %q: %w", key, err)
	}
	return nil
}

// Delete removes the key.
func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)); err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}

// Touch resets the key's TTL. It reports false when the key is gone.
func (s *TypedStore[C]) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, s.fullKey(key), ttl)
	if err != nil {
		return false, fmt.Errorf("typed store touch %q: %w", key, err)
	}
	return ok, nil
}
