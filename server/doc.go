// Package server provides the HTTP server: Gin routes behind an http.ServeMux,
// served over HTTP/1.1 and h2c, with lifecycle management as a component.
//
// # Middleware
//
// Built-in middleware (server/middleware) wraps the root handler so it
// covers every route, including the event stream:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body limits
//   - RequestLogger: one log line per request, at stream end for streams
//
// RateLimit is a Gin handler applied per route.
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /health, /alive, /ready, /info,
// /version and /metrics.
package server
