package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/ssehub/logger"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// RequestID propagates the caller's X-Request-Id or generates one. The id is
// set on the request, echoed on the response and stored on the context for
// logger.WithContext.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			ctx := logger.ContextWith(r.Context(), logger.FieldRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
