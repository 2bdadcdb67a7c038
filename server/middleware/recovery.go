package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
)

// Recovery returns middleware that recovers from panics, logs the stack and
// answers with a generic internal error body.
func Recovery(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithContext(r.Context()).Error("Panic recovered", map[string]interface{}{
					"error":       fmt.Sprintf("%v", rec),
					"stack":       string(debug.Stack()),
					"path":        r.URL.Path,
					"method":      r.Method,
					"remote_addr": r.RemoteAddr,
				})
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(apperrors.Internal(nil).ToResponse())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
