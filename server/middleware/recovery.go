package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/logger"
)

// Recovery returns middleware that recovers from panics, logs the stack and
// answers 500 with the standard error envelope.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("Panic recovered", map[string]interface{}{
						"error":  fmt.Sprintf("%v", err),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					})
					writeError(w, errors.Internal(fmt.Errorf("panic: %v", err)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
