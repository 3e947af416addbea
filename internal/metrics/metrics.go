// Package metrics define los collectors Prometheus de la consola. Vive en un
// paquete aparte para que session y http los compartan sin ciclos.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/meshconsole/internal/health"
)

var (
	HealthStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meshconsole_health_status",
		Help: "Prioridad del status global de salud (0=NA 1=Healthy 2=Degraded 3=Failure)",
	}, []string{"kind", "namespace", "name"})

	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshconsole_login_attempts_total",
		Help: "Intentos de login por estrategia y resultado",
	}, []string{"strategy", "result"})

	StageTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshconsole_stage_transitions_total",
		Help: "Transiciones del state machine de login",
	}, []string{"from", "to"})

	SessionExpirations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meshconsole_session_expirations_total",
		Help: "Sesiones cerradas por vencimiento o 401",
	})

	BootstrapDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meshconsole_bootstrap_duration_seconds",
		Help:    "Duración del bootstrap post-login",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
	}, []string{"result"})
)

// Register registra los collectors en reg (o el default si es nil). Es
// idempotente.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HealthStatus, LoginAttempts, StageTransitions, SessionExpirations, BootstrapDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveHealth publica el status global de un Record.
func ObserveHealth(namespace, name string, rec health.Record) {
	HealthStatus.WithLabelValues(string(rec.Kind()), namespace, name).Set(float64(rec.GlobalStatus().Priority()))
}
