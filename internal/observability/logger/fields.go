package logger

import (
	"time"

	"go.uber.org/zap"
)

// ───────── Sistema ─────────

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }

// ───────── HTTP / backend ─────────

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func StatusCode(v int) zap.Field { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Remaining(v time.Duration) zap.Field { return zap.Duration("remaining", v) }
func ExpiresOn(v time.Time) zap.Field { return zap.Time("expires_on", v) }
func Count(v int) zap.Field { return zap.Int("count", v) }

// ───────── Dominio ─────────

// Stage es la etapa del state machine de login.
func Stage(v string) zap.Field { return zap.String("stage", v) }

// Strategy es la estrategia de autenticación resuelta.
func Strategy(v string) zap.Field { return zap.String("strategy", v) }

func Username(v string) zap.Field { return zap.String("username", v) }
func Namespace(v string) zap.Field { return zap.String("namespace", v) }
func Workload(v string) zap.Field { return zap.String("workload", v) }
func HealthStatus(v string) zap.Field { return zap.String("health_status", v) }
