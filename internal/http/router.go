// Package http expone el estado de sesión y la salud agregada de la malla
// sobre un router chi.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/health"
	httperrors "github.com/dropDatabas3/meshconsole/internal/http/errors"
	mw "github.com/dropDatabas3/meshconsole/internal/http/middlewares"
	"github.com/dropDatabas3/meshconsole/internal/metrics"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
	"github.com/dropDatabas3/meshconsole/internal/session"
)

// SessionController es la parte del controller que usa el router.
type SessionController interface {
	State() session.State
	HandleAPIError(ctx context.Context, err error) bool
	ExtendSession(ctx context.Context) error
	DismissTimeoutDialog()
}

var _ SessionController = (*session.Controller)(nil)

// Deps contiene las dependencias del router.
type Deps struct {
	Session    SessionController
	Client     api.Client
	Thresholds health.RatioThresholds
	// Gatherer para /metrics; nil usa el default de prometheus.
	Gatherer prometheus.Gatherer
	// Timeout por request hacia el backend.
	Timeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	h := &handlers{d: d}

	r := chi.NewRouter()
	r.Use(mw.WithRecover(), mw.WithRequestID(), mw.WithLogging())

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/session/extend", h.extend)
		r.Post("/session/dismiss", h.dismiss)
		r.Get("/namespaces/{ns}/health", h.namespaceHealth)
	})
	return r
}

type handlers struct {
	d Deps
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Session.State())
}

func (h *handlers) extend(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Session.ExtendSession(r.Context()); err != nil {
		httperrors.WriteError(w, httperrors.ErrSessionExpired.WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, h.d.Session.State())
}

func (h *handlers) dismiss(w http.ResponseWriter, _ *http.Request) {
	h.d.Session.DismissTimeoutDialog()
	w.WriteHeader(http.StatusNoContent)
}

// namespaceHealth calcula el agregado de cada entidad del namespace.
// ?type= elige la variante (app por defecto).
func (h *handlers) namespaceHealth(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "ns")
	kind := health.KindApp
	if q := r.URL.Query().Get("type"); q != "" {
		k, ok := health.ParseKind(q)
		if !ok {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("type must be app, service or workload"))
			return
		}
		kind = k
	}
	if !h.d.Session.State().Authenticated() {
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
		return
	}

	log := logger.From(r.Context()).With(
		logger.Component("http.health"),
		logger.Namespace(ns),
	)

	ctx, cancel := context.WithTimeout(r.Context(), h.d.Timeout)
	defer cancel()
	raw, err := h.d.Client.GetNamespaceHealth(ctx, ns, kind)
	if err != nil {
		if h.d.Session.HandleAPIError(r.Context(), err) {
			httperrors.WriteError(w, httperrors.ErrSessionExpired.WithCause(err))
			return
		}
		log.Warn("namespace health failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	out := make(map[string]health.Record, len(raw))
	for name, rh := range raw {
		rec := rh.Record(name, kind, h.d.Thresholds)
		metrics.ObserveHealth(ns, name, rec)
		if kind == health.KindWorkload && rec.GlobalStatus() == health.Failure {
			log.Info("workload failing", logger.Workload(name), logger.HealthStatus(rec.GlobalStatus().String()))
		}
		out[name] = rec
	}
	log.Debug("namespace health computed", logger.Count(len(out)))
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
