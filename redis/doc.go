// Package redis provides a Redis client component with connection pooling,
// lifecycle management and health checks, built on go-redis.
//
// # Typed Operations
//
// TypedStore provides generic JSON-serialized get/set operations:
//
//	store := redis.NewTypedStore[Presence](client, "presence")
//	store.Save(ctx, id, &p, 90*time.Second)
//
// For ad-hoc typed operations, use GetJSON/SetJSON on the Client directly.
//
// # Pub/Sub
//
//	sub := client.Subscribe(ctx, "ssehub:events")
//	defer sub.Close()
//	for msg := range sub.Channel() { ... }
package redis
