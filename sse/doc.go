// Package sse keeps server-sent-event streams open and routes events to the
// connections subscribed to a channel.
//
// # Architecture
//
//   - Connection: one client stream, its identity and its subscriptions
//   - Registry: the connections of this process, with Broadcast and SendTo
//   - Handler: the HTTP endpoint that opens and drives a stream
//   - Component: lifecycle wrapper that closes streams on shutdown
//
// # Usage
//
//	reg := sse.NewRegistry()
//	router.GET("/events", sse.NewHandler(reg).GinHandler())
//	reg.Broadcast(ctx, "orders:42", sse.NewEvent("order.updated", data))
package sse
