package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/ssehub/logger"
)

// RequestLogger returns middleware that logs every request with method,
// path, status code, body size and duration. Probe paths are silently skipped.
// Event streams are logged once, when the stream ends.
func RequestLogger(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			tw := newTrackingWriter(w)
			next.ServeHTTP(tw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				"status":             tw.status,
				"bytes":              tw.bytes,
				logger.FieldDuration: duration.Milliseconds(),
			}
			if strings.HasPrefix(tw.Header().Get("Content-Type"), "text/event-stream") {
				fields["stream"] = true
				fields["flushes"] = tw.flushes
			}

			logByStatus(log.WithContext(r.Context()), fields, tw.status)
		})
	}
}

func isHealthEndpoint(path string) bool {
	switch strings.TrimSuffix(path, "/") {
	case "/health", "/alive", "/ready", "/metrics":
		return true
	}
	return false
}

// logByStatus logs request fields at the appropriate level based on HTTP status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
