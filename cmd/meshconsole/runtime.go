package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/auth"
	"github.com/dropDatabas3/meshconsole/internal/cache"
	"github.com/dropDatabas3/meshconsole/internal/config"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
	"github.com/dropDatabas3/meshconsole/internal/session"
)

// runtime es el wiring compartido por los subcomandos.
type runtime struct {
	cfg     *config.Config
	client  *api.HTTPClient
	authCfg *auth.Config
	store   session.Store
	cache   cache.Client
}

func setup(ctx context.Context, opts *globalOpts) (*runtime, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "meshconsole",
		Version:     version,
	})

	key, err := cfg.SealKey()
	if err != nil {
		return nil, err
	}
	kv, err := cache.New(ctx, cache.Config{
		Driver:     cfg.Store.Kind,
		Addr:       cfg.Store.Redis.Addr,
		Password:   cfg.Store.Redis.Password,
		DB:         cfg.Store.Redis.DB,
		Prefix:     cfg.Store.Redis.Prefix,
		DefaultTTL: cfg.Store.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	client, err := api.NewHTTPClient(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	info, err := client.GetAuthInfo(ctx)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("auth info: %w", err)
	}
	authCfg, err := auth.NewConfig(info)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	logger.L().Info("runtime ready",
		logger.Component("cmd"),
		logger.Strategy(string(authCfg.Strategy().Kind())),
	)
	return &runtime{
		cfg:     cfg,
		client:  client,
		authCfg: authCfg,
		store:   session.NewCacheStore(kv, cfg.Store.TTL, key),
		cache:   kv,
	}, nil
}

func (rt *runtime) Close() error { return rt.cache.Close() }

func (rt *runtime) timing() session.Timing {
	s := rt.cfg.Session
	return session.Timing{
		PostLoginDeadline: s.PostLoginDeadline,
		RedirectHoldDelay: s.RedirectHoldDelay,
		Monitor: session.MonitorConfig{
			PollInterval:      s.PollInterval,
			CountdownInterval: s.CountdownInterval,
			WarningThreshold:  s.WarningThreshold,
			ExtensionLength:   s.ExtensionLength,
		},
	}
}

// newController arma el controller; cada cambio de estado se publica en
// changes sin bloquear.
func (rt *runtime) newController(changes chan<- session.State) *session.Controller {
	return session.NewController(session.Deps{
		Client:     rt.client,
		AuthConfig: rt.authCfg,
		Store:      rt.store,
		Timing:     rt.timing(),
		Redirect: func(url string) {
			fmt.Printf("Abrí esta URL en el navegador para autenticarte:\n  %s\n", url)
		},
		OnChange: func(st session.State) {
			select {
			case changes <- st:
			default:
			}
		},
	})
}

var errPostLogin = errors.New(session.PostLoginErrorMessage)

// login monta el controller, corre el login si hace falta y espera hasta
// LOGGED_IN o un error.
func (rt *runtime) login(ctx context.Context, token string, wait time.Duration) (*session.Controller, error) {
	changes := make(chan session.State, 64)
	ctrl := rt.newController(changes)

	stage := ctrl.Mount(ctx, "/", "")
	if stage == session.StageLogin {
		if err := ctrl.Login(ctx, api.Credentials{Token: token}); err != nil {
			ctrl.Unmount()
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for {
		st := ctrl.State()
		switch {
		case st.Stage == session.StageLoggedIn:
			return ctrl, nil
		case st.IsPostLoginError:
			ctrl.Unmount()
			return nil, errPostLogin
		case st.Stage == session.StageLogin && st.LoginError != "":
			ctrl.Unmount()
			return nil, errors.New(st.LoginError)
		}
		select {
		case <-changes:
		case <-ctx.Done():
			ctrl.Unmount()
			return nil, fmt.Errorf("login: %w", ctx.Err())
		}
	}
}
