// Package component defines lifecycle-managed infrastructure.
//
// Each piece of infrastructure (database, redis, the SSE registry, relays,
// the HTTP server) implements Component and is registered with a Registry,
// which starts them in order and stops them in reverse.
package component
