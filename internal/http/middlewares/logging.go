package middlewares

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

// statusRecorder captura el status de la respuesta.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}

// WithLogging inyecta un logger scoped (request_id, method, path) en el
// contexto y registra cada request con nivel según el status.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rid := w.Header().Get("X-Request-ID")
			if rid == "" {
				rid = GetRequestID(r.Context())
			}

			reqLog := logger.L().With(
				logger.RequestID(rid),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			ctx := logger.ToContext(r.Context(), reqLog)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(ctx))

			status, dur := logger.StatusCode(rec.status), logger.Duration(time.Since(start))
			switch {
			case rec.status >= 500:
				reqLog.Error("request failed", status, dur)
			case rec.status >= 400:
				reqLog.Warn("request completed with client error", status, dur)
			default:
				reqLog.Info("request completed", status, dur)
			}
		})
	}
}
