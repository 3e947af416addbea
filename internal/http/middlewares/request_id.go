package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// WithRequestID propaga el X-Request-ID del cliente o genera uno nuevo. Se
// expone en la respuesta y queda en el contexto.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			ctx := context.WithValue(r.Context(), ctxRequestIDKey, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
