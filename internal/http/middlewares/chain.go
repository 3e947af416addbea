// Package middlewares contiene los decoradores HTTP del router.
package middlewares

import (
	"context"
	"net/http"
)

// Middleware es un decorador de http.Handler. Es asignable a los
// middlewares de chi.
type Middleware func(http.Handler) http.Handler

// Chain(h, A, B) ejecuta A -> B -> h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey string

const ctxRequestIDKey ctxKey = "request_id"

// GetRequestID devuelve "" si WithRequestID no se aplicó.
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}
