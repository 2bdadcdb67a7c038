// Package api exposes the connection registry over HTTP: the event stream
// itself, connection inspection and subscription management, publishing,
// and per-user history and presence backed by the session tracker.
//
// Callers are identified by X-User-ID / X-Session-ID headers set by an
// upstream gateway; the routes do no authentication of their own.
package api
