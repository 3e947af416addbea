package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

// AuthResult es el resultado de cada fase del login.
type AuthResult int

const (
	Continue AuthResult = iota
	Hold
	Success
	Failure
)

func (r AuthResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case Hold:
		return "hold"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("AuthResult(%d)", int(r))
}

var (
	ErrMissingToken       = errors.New("auth: token required")
	ErrNoRedirectEndpoint = errors.New("auth: no authorization endpoint for redirect")
)

// PrepareRequest describe el contexto del navegador al iniciar el login.
type PrepareRequest struct {
	Callback *Callback
	Cluster  string
}

// PrepareResult: con Hold, RedirectURL es hacia donde se va a navegar.
type PrepareResult struct {
	Result      AuthResult
	RedirectURL string
	Err         error
}

type PerformRequest struct {
	Credentials api.Credentials
	Callback    *Callback
}

// PerformResult nunca transporta un Success con Err != nil. Session puede
// ser nil en Success cuando no queda nada que hacer localmente (OAuth).
type PerformResult struct {
	Result  AuthResult
	Session *Session
	// FromCallback marca una sesión leída del id_token sin pasar por el
	// backend; todavía no está validada.
	FromCallback bool
	Err          error
}

// Dispatcher corre Prepare/Perform según la estrategia configurada.
type Dispatcher struct {
	cfg    *Config
	client api.Client
	now    func() time.Time
}

func NewDispatcher(cfg *Config, client api.Client, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{cfg: cfg, client: client, now: now}
}

// Prepare corre antes de juntar credenciales. Para OAuth sin callback
// devuelve Hold: el caller navega a RedirectURL y, si sigue acá pasado un
// tiempo acotado, lo trata como Failure.
func (d *Dispatcher) Prepare(ctx context.Context, req PrepareRequest) PrepareResult {
	switch s := d.cfg.Strategy().(type) {
	case Anonymous, Token, Header:
		return PrepareResult{Result: Continue}
	case OAuth:
		if req.Callback != nil {
			return PrepareResult{Result: Continue}
		}
		ep := d.cfg.AuthorizationEndpointFor(req.Cluster)
		if ep == "" {
			return PrepareResult{Result: Failure, Err: ErrNoRedirectEndpoint}
		}
		logger.From(ctx).Debug("redirecting to authorization endpoint",
			logger.Component("auth.dispatcher"), logger.Strategy(string(s.Kind())))
		return PrepareResult{Result: Hold, RedirectURL: ep}
	default:
		return PrepareResult{Result: Failure, Err: fmt.Errorf("auth: unsupported strategy %T", s)}
	}
}

// Perform autentica. Cualquier error del backend vuelve envuelto en
// PerformResult{Failure, Err}.
func (d *Dispatcher) Perform(ctx context.Context, req PerformRequest) PerformResult {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.dispatcher"),
		logger.Op("Perform"),
		logger.Strategy(string(d.cfg.Strategy().Kind())),
	)

	switch s := d.cfg.Strategy().(type) {
	case Token:
		if req.Credentials.Token == "" {
			return PerformResult{Result: Failure, Err: ErrMissingToken}
		}
		return d.backendLogin(ctx, req.Credentials)
	case Anonymous, Header:
		return d.backendLogin(ctx, api.Credentials{})
	case OAuth:
		// el redirect ya ocurrió; lo único local es leer el callback
		if req.Callback != nil {
			if sess, ok := req.Callback.Session(d.now()); ok {
				log.Debug("session derived from callback", logger.Username(sess.Username))
				return PerformResult{Result: Success, Session: &sess, FromCallback: true}
			}
		}
		return PerformResult{Result: Success}
	default:
		return PerformResult{Result: Failure, Err: fmt.Errorf("auth: unsupported strategy %T", s)}
	}
}

func (d *Dispatcher) backendLogin(ctx context.Context, creds api.Credentials) PerformResult {
	info, err := d.client.Login(ctx, creds)
	if err != nil {
		return PerformResult{Result: Failure, Err: fmt.Errorf("auth: login: %w", err)}
	}
	sess := SessionFromInfo(info)
	return PerformResult{Result: Success, Session: &sess}
}
