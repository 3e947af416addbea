// Package session implementa el state machine de login: etapa inicial,
// protocolo de login, bootstrap post-login con deadline de UX, monitor de
// vencimiento y cancelación atada a la vida del controller.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/auth"
	"github.com/dropDatabas3/meshconsole/internal/cache"
	"github.com/dropDatabas3/meshconsole/internal/clock"
	"github.com/dropDatabas3/meshconsole/internal/metrics"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

// PostLoginErrorMessage es el diagnóstico fijo de la pantalla de error
// post-login.
const PostLoginErrorMessage = "Error loading the application data after login. Reload the page; if the problem persists check the server logs."

const (
	msgSessionExpired = "Your session has expired or was terminated in another window."
	msgUnauthorized   = "Unauthorized. The provided credentials are not valid or have expired."
)

var (
	ErrRedirectTimeout  = errors.New("session: redirect to the authorization endpoint did not happen")
	ErrNoSession        = errors.New("session: backend did not establish a session")
	ErrNotAuthenticated = errors.New("session: not authenticated")
)

// State es la foto que consume la capa de presentación. Es una copia: la
// UI nunca la muta de vuelta.
type State struct {
	Stage                 Stage            `json:"stage"`
	Session               *auth.Session    `json:"session,omitempty"`
	IsPostLoginError      bool             `json:"isPostLoginError"`
	PostLoginErrorMessage string           `json:"postLoginErrorMessage,omitempty"`
	LoginError            string           `json:"loginError,omitempty"`
	LandingRoute          string           `json:"landingRoute,omitempty"`
	ShowTimeoutDialog     bool             `json:"showTimeoutDialog"`
	TimeRemaining         time.Duration    `json:"timeRemaining"`
	Bootstrap             *BootstrapResult `json:"bootstrap,omitempty"`
}

func (s State) Authenticated() bool { return s.Session != nil }

// Timing agrupa los tiempos del controller.
type Timing struct {
	PostLoginDeadline time.Duration
	RedirectHoldDelay time.Duration
	Monitor           MonitorConfig
}

// Deps contiene las dependencias del controller.
type Deps struct {
	Client     api.Client
	AuthConfig *auth.Config
	Store      Store
	Clock      clock.Clock
	Timing     Timing

	// DefaultRoute se usa al terminar el login si no hay landing route.
	DefaultRoute string
	// Cluster elige el authorization endpoint por cluster.
	Cluster string

	Navigate func(route string)
	Redirect func(url string)
	OnChange func(State)
}

// Controller es el AuthenticationController. Todas las transiciones pasan
// por mu; los callbacks hacia afuera se llaman sin el lock tomado.
type Controller struct {
	deps         Deps
	dispatcher   *auth.Dispatcher
	bootstrapper *Bootstrapper
	registry     *Registry
	monitor      *Monitor
	log          *zap.Logger

	mu       sync.Mutex
	state    State
	mounted  bool
	life     uint64 // cambia en Mount/Unmount
	epoch    uint64 // cambia con cada sesión nueva, terminada o desmontada
	deadline clock.Timer
	// unsaved: la sesión viene del callback y se persiste recién cuando el
	// backend la acepta en el bootstrap.
	unsaved bool
}

func NewController(d Deps) *Controller {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Store == nil {
		d.Store = NewCacheStore(cache.NewMemory("", 0), 0, nil)
	}
	if d.DefaultRoute == "" {
		d.DefaultRoute = "/overview"
	}
	if d.Navigate == nil {
		d.Navigate = func(string) {}
	}
	if d.Redirect == nil {
		d.Redirect = func(string) {}
	}
	if d.OnChange == nil {
		d.OnChange = func(State) {}
	}

	c := &Controller{
		deps:         d,
		dispatcher:   auth.NewDispatcher(d.AuthConfig, d.Client, d.Clock.Now),
		bootstrapper: NewBootstrapper(d.Client),
		registry:     NewRegistry(),
		log: logger.Named("session").With(
			logger.Component("session.controller"),
			logger.Strategy(string(d.AuthConfig.Strategy().Kind())),
		),
	}
	c.monitor = NewMonitor(d.Timing.Monitor, d.Clock, c.onExpire, c.onMonitorChange)
	return c
}

// Mount decide la etapa inicial. route es la ruta pedida (landing route) y
// fragment el hash de la URL, que puede traer un callback OAuth.
func (c *Controller) Mount(ctx context.Context, route, fragment string) Stage {
	log := logger.From(ctx).With(logger.Component("session.controller"), logger.Op("Mount"))
	now := c.deps.Clock.Now()

	restored, err := c.deps.Store.Load(ctx)
	if err != nil {
		log.Warn("persisted session unreadable, ignoring it", logger.Err(err))
		restored = nil
	}
	if restored != nil && !restored.Valid(now) {
		_ = c.deps.Store.Clear(ctx)
		restored = nil
	}

	c.mu.Lock()
	c.mounted = true
	c.life++
	life := c.life

	if restored != nil {
		c.epoch++
		epoch := c.epoch
		sess := *restored
		c.unsaved = false
		c.state.Session = &sess
		c.state.LandingRoute = route
		c.setStageLocked(StageLoggedInAtLoad)
		st := c.snapshotLocked()
		c.mu.Unlock()

		log.Info("session restored at load", logger.Username(sess.Username), logger.ExpiresOn(sess.ExpiresOn))
		c.notify(st)
		c.monitor.Start(sess)
		c.runBootstrap(ctx, epoch)
		return StageLoggedInAtLoad
	}

	cb, hasCallback := auth.ParseCallback(fragment)
	auto := hasCallback || !c.deps.AuthConfig.Strategy().RequiresInteraction()
	c.state.LandingRoute = route
	stage := StageLogin
	if auto {
		stage = StageLoggedInAtLoad
	}
	c.setStageLocked(stage)
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)

	if auto {
		c.registry.Go(context.WithoutCancel(ctx), func(gctx context.Context) error {
			return c.checkCredentials(gctx, cb, life)
		}, func(err error) {
			c.failLogin(err, life)
		})
	}
	return stage
}

// Login corre Prepare y Perform con las credenciales del usuario. Con
// Hold devuelve nil: el redirect está en curso.
func (c *Controller) Login(ctx context.Context, creds api.Credentials) error {
	c.mu.Lock()
	life := c.life
	c.mu.Unlock()

	err := c.login(ctx, creds, nil, life)
	c.failLogin(err, life)
	return err
}

// Logout cierra la sesión en el backend (best-effort) y localmente.
// Devuelve la URL de logout del proveedor si la hay.
func (c *Controller) Logout(ctx context.Context) string {
	log := logger.From(ctx).With(logger.Component("session.controller"), logger.Op("Logout"))
	if err := c.deps.Client.Logout(ctx); err != nil {
		log.Warn("backend logout failed, clearing local session anyway", logger.Err(err))
	}
	c.endSession(ctx, "", false)
	return c.deps.AuthConfig.LogoutURL()
}

// HandleAPIError fuerza logout ante un 401. Devuelve true si err era 401.
func (c *Controller) HandleAPIError(ctx context.Context, err error) bool {
	if !api.IsUnauthorized(err) {
		return false
	}
	if c.endSession(ctx, msgSessionExpired, true) {
		metrics.SessionExpirations.Inc()
	}
	return true
}

// ExtendSession reemplaza el vencimiento por now+ExtensionLength.
func (c *Controller) ExtendSession(ctx context.Context) error {
	ext, ok := c.monitor.Extend()
	if !ok {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.state.Session == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	c.state.Session = &ext
	c.state.ShowTimeoutDialog = false
	persist := !c.unsaved
	st := c.snapshotLocked()
	c.mu.Unlock()

	if persist {
		c.saveSession(ctx, ext)
	}
	c.notify(st)
	return nil
}

// DismissTimeoutDialog oculta el aviso; el vencimiento se sigue chequeando.
func (c *Controller) DismissTimeoutDialog() {
	c.monitor.Dismiss()
}

// Unmount cancela todo lo registrado y detiene timers. Resultados tardíos
// se descartan.
func (c *Controller) Unmount() {
	c.registry.CancelAll()
	c.mu.Lock()
	c.mounted = false
	c.life++
	c.epoch++
	c.stopDeadlineLocked()
	c.mu.Unlock()
	c.monitor.Stop()
}

// Wait bloquea hasta que terminen las operaciones en vuelo.
func (c *Controller) Wait() { c.registry.Wait() }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ───────── login ─────────

func (c *Controller) checkCredentials(ctx context.Context, cb *auth.Callback, life uint64) error {
	info, err := c.deps.Client.GetAuthInfo(ctx)
	switch {
	case err == nil && info.SessionInfo != nil:
		s := auth.SessionFromInfo(*info.SessionInfo)
		if s.Valid(c.deps.Clock.Now()) {
			c.authenticate(ctx, s, life, true)
			return nil
		}
	case err != nil && !api.IsUnauthorized(err):
		return fmt.Errorf("session: check credentials: %w", err)
	}
	return c.login(ctx, api.Credentials{}, cb, life)
}

func (c *Controller) login(ctx context.Context, creds api.Credentials, cb *auth.Callback, life uint64) error {
	strategy := string(c.deps.AuthConfig.Strategy().Kind())
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.controller"),
		logger.Op("login"),
		logger.Strategy(strategy),
	)

	prep := c.dispatcher.Prepare(ctx, auth.PrepareRequest{Callback: cb, Cluster: c.deps.Cluster})
	switch prep.Result {
	case auth.Continue:
	case auth.Hold:
		metrics.LoginAttempts.WithLabelValues(strategy, auth.Hold.String()).Inc()
		log.Info("redirecting to authorization endpoint")
		c.deps.Redirect(prep.RedirectURL)
		// si seguimos acá pasado el delay, el redirect no ocurrió
		c.registry.After(c.deps.Clock, c.deps.Timing.RedirectHoldDelay, func() {
			c.failLoginIf(ErrRedirectTimeout, func() bool {
				return c.life == life && c.state.Stage == StageLogin
			})
		})
		return nil
	default:
		metrics.LoginAttempts.WithLabelValues(strategy, auth.Failure.String()).Inc()
		if prep.Err == nil {
			return fmt.Errorf("session: prepare returned %s", prep.Result)
		}
		return prep.Err
	}

	res := c.dispatcher.Perform(ctx, auth.PerformRequest{Credentials: creds, Callback: cb})
	if res.Result != auth.Success {
		metrics.LoginAttempts.WithLabelValues(strategy, auth.Failure.String()).Inc()
		if res.Err == nil {
			return fmt.Errorf("session: perform returned %s", res.Result)
		}
		return res.Err
	}

	sess, verified := res.Session, !res.FromCallback
	if sess == nil {
		info, err := c.deps.Client.GetAuthInfo(ctx)
		if err != nil {
			return fmt.Errorf("session: verify login: %w", err)
		}
		if info.SessionInfo == nil {
			return ErrNoSession
		}
		s := auth.SessionFromInfo(*info.SessionInfo)
		sess = &s
	}
	if !sess.Valid(c.deps.Clock.Now()) {
		metrics.LoginAttempts.WithLabelValues(strategy, auth.Failure.String()).Inc()
		return ErrNoSession
	}

	metrics.LoginAttempts.WithLabelValues(strategy, auth.Success.String()).Inc()
	log.Info("login succeeded", logger.Username(sess.Username))
	c.authenticate(ctx, *sess, life, verified)
	return nil
}

// authenticate es el flanco "authenticated" false -> true: pasa a
// POST_LOGIN, arma el deadline y lanza el bootstrap. Una sesión sin
// verificar no se persiste hasta que el bootstrap la confirme.
func (c *Controller) authenticate(ctx context.Context, s auth.Session, life uint64, verified bool) {
	if verified {
		c.saveSession(ctx, s)
	}

	c.mu.Lock()
	if c.life != life {
		c.mu.Unlock()
		return
	}
	c.unsaved = !verified
	c.epoch++
	epoch := c.epoch
	sess := s
	c.state.Session = &sess
	c.state.LoginError = ""
	c.state.IsPostLoginError = false
	c.state.PostLoginErrorMessage = ""
	c.state.Bootstrap = nil
	c.setStageLocked(StagePostLogin)
	c.stopDeadlineLocked()
	c.deadline = c.deps.Clock.AfterFunc(c.deps.Timing.PostLoginDeadline, func() {
		c.onDeadline(epoch)
	})
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(st)
	c.monitor.Start(s)
	c.runBootstrap(ctx, epoch)
}

func (c *Controller) failLogin(err error, life uint64) {
	c.failLoginIf(err, func() bool { return c.life == life })
}

// failLoginIf vuelve a LOGIN con el error si guardLocked, evaluado con mu
// tomado, sigue valiendo.
func (c *Controller) failLoginIf(err error, guardLocked func() bool) {
	if err == nil || IsCanceled(err) {
		return
	}
	msg := err.Error()
	if api.IsUnauthorized(err) {
		msg = msgUnauthorized
	}

	c.mu.Lock()
	if !guardLocked() {
		c.mu.Unlock()
		return
	}
	c.unsaved = false
	c.epoch++
	c.stopDeadlineLocked()
	c.state.Session = nil
	c.state.Bootstrap = nil
	c.state.IsPostLoginError = false
	c.state.PostLoginErrorMessage = ""
	c.state.LoginError = msg
	c.setStageLocked(StageLogin)
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Warn("login failed", logger.Err(err))
	c.monitor.Stop()
	c.notify(st)
}

// ───────── post-login ─────────

func (c *Controller) runBootstrap(ctx context.Context, epoch uint64) {
	start := time.Now()
	var res BootstrapResult
	c.registry.Go(context.WithoutCancel(ctx), func(gctx context.Context) error {
		r, err := c.bootstrapper.Run(gctx)
		res = r
		return err
	}, func(err error) {
		c.onBootstrapDone(epoch, res, err, time.Since(start))
	})
}

// onDeadline es solo un fallback de presentación: no cancela el bootstrap.
func (c *Controller) onDeadline(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.state.Stage != StagePostLogin {
		c.mu.Unlock()
		return
	}
	c.setStageLocked(StageLoggedInAtLoad)
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("post-login deadline reached, showing loading screen")
	c.notify(st)
}

// onBootstrapDone aplica el resultado aunque el deadline ya haya disparado
// (last-write-wins sobre la etapa).
func (c *Controller) onBootstrapDone(epoch uint64, res BootstrapResult, err error, took time.Duration) {
	if IsCanceled(err) {
		c.log.Debug("bootstrap result discarded after unmount")
		return
	}
	if err != nil && api.IsUnauthorized(err) {
		metrics.BootstrapDuration.WithLabelValues("unauthorized").Observe(took.Seconds())
		if c.endSessionIf(context.Background(), msgSessionExpired, epoch) {
			metrics.SessionExpirations.Inc()
		}
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.stopDeadlineLocked()
	if err != nil {
		c.state.IsPostLoginError = true
		c.state.PostLoginErrorMessage = PostLoginErrorMessage
		c.setStageLocked(StageLoggedInAtLoad)
		st := c.snapshotLocked()
		c.mu.Unlock()

		metrics.BootstrapDuration.WithLabelValues("error").Observe(took.Seconds())
		c.log.Error("post-login bootstrap failed", logger.Err(err), logger.Duration(took))
		c.notify(st)
		return
	}

	c.state.Bootstrap = &res
	c.setStageLocked(StageLoggedIn)
	route := c.state.LandingRoute
	if route == "" {
		route = c.deps.DefaultRoute
	}
	c.state.LandingRoute = ""
	var confirmed *auth.Session
	if c.unsaved && c.state.Session != nil {
		s := *c.state.Session
		confirmed = &s
		c.unsaved = false
	}
	st := c.snapshotLocked()
	c.mu.Unlock()

	if confirmed != nil {
		c.saveSession(context.Background(), *confirmed)
	}
	metrics.BootstrapDuration.WithLabelValues("ok").Observe(took.Seconds())
	c.notify(st)
	c.deps.Navigate(route)
}

// ───────── fin de sesión ─────────

// onExpire solo cierra la sesión que el monitor vigilaba y mientras el
// controller siga montado.
func (c *Controller) onExpire(s auth.Session) {
	closed := c.finish(context.Background(), msgSessionExpired, func() bool {
		cur := c.state.Session
		return c.mounted && cur != nil && cur.ExpiresOn.Equal(s.ExpiresOn)
	})
	if !closed {
		return
	}
	c.log.Info("session expired", logger.Username(s.Username), logger.ExpiresOn(s.ExpiresOn))
	metrics.SessionExpirations.Inc()
	c.registry.Go(context.Background(), func(ctx context.Context) error {
		return c.deps.Client.Logout(ctx)
	}, func(err error) {
		if err != nil && !IsCanceled(err) {
			c.log.Debug("backend logout after expiry failed", logger.Err(err))
		}
	})
}

func (c *Controller) onMonitorChange(ms MonitorState) {
	c.mu.Lock()
	if c.state.Session == nil && ms.Active {
		c.mu.Unlock()
		return
	}
	c.state.ShowTimeoutDialog = ms.ShowDialog
	c.state.TimeRemaining = ms.TimeRemaining
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
}

// endSession vuelve a LOGIN. Con onlyIfAuthenticated no hace nada si no
// había sesión. Devuelve true si cerró una sesión.
func (c *Controller) endSession(ctx context.Context, loginError string, onlyIfAuthenticated bool) bool {
	return c.finish(ctx, loginError, func() bool {
		return !onlyIfAuthenticated || c.state.Session != nil
	})
}

func (c *Controller) endSessionIf(ctx context.Context, loginError string, epoch uint64) bool {
	return c.finish(ctx, loginError, func() bool { return c.epoch == epoch })
}

func (c *Controller) finish(ctx context.Context, loginError string, guardLocked func() bool) bool {
	c.mu.Lock()
	if !guardLocked() {
		c.mu.Unlock()
		return false
	}
	had := c.state.Session != nil
	c.unsaved = false
	c.epoch++
	c.stopDeadlineLocked()
	c.state = State{Stage: c.state.Stage, LoginError: loginError, LandingRoute: c.state.LandingRoute}
	c.setStageLocked(StageLogin)
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.monitor.Stop()
	if err := c.deps.Store.Clear(ctx); err != nil {
		c.log.Warn("could not clear persisted session", logger.Err(err))
	}
	c.notify(st)
	return had
}

// ───────── helpers ─────────

func (c *Controller) saveSession(ctx context.Context, s auth.Session) {
	if err := c.deps.Store.Save(ctx, s); err != nil {
		c.log.Warn("could not persist session", logger.Err(err))
	}
}

func (c *Controller) setStageLocked(to Stage) {
	from := c.state.Stage
	if from == to {
		return
	}
	c.state.Stage = to
	metrics.StageTransitions.WithLabelValues(from.String(), to.String()).Inc()
	c.log.Debug("stage transition", zap.String("from", from.String()), logger.Stage(to.String()))
}

func (c *Controller) stopDeadlineLocked() {
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
}

func (c *Controller) snapshotLocked() State {
	st := c.state
	if st.Session != nil {
		s := *st.Session
		st.Session = &s
	}
	return st
}

func (c *Controller) notify(st State) {
	c.deps.OnChange(st)
}
