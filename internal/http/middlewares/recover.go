package middlewares

import (
	"net/http"

	"go.uber.org/zap"

	httperrors "github.com/dropDatabas3/meshconsole/internal/http/errors"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

// WithRecover captura panics y responde 500 en lugar de tirar el proceso.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Op("recover"),
						zap.Any("panic", rec),
					)
					httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
