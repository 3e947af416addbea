package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

// BootstrapResult son los datos que la UI protegida necesita para renderizar.
// Status y TracingInfo quedan en nil si su request falló.
type BootstrapResult struct {
	Namespaces   []api.Namespace  `json:"namespaces"`
	ServerConfig api.ServerConfig `json:"serverConfig"`
	Status       *api.StatusInfo  `json:"status"`
	TracingInfo  *api.TracingInfo `json:"tracingInfo"`
}

// Bootstrapper corre los fetches post-login en paralelo. Namespaces y config
// son fatales; status y tracing se recuperan con log + nil.
type Bootstrapper struct {
	client api.Client
}

func NewBootstrapper(client api.Client) *Bootstrapper {
	return &Bootstrapper{client: client}
}

func (b *Bootstrapper) Run(ctx context.Context) (BootstrapResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session.bootstrap"),
		logger.Op("Run"),
	)

	var (
		res     BootstrapResult
		status  api.StatusInfo
		tracing api.TracingInfo
		okSt    bool
		okTr    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ns, err := b.client.GetNamespaces(gctx)
		if err != nil {
			return fmt.Errorf("bootstrap: namespaces: %w", err)
		}
		res.Namespaces = ns
		return nil
	})
	g.Go(func() error {
		cfg, err := b.client.GetServerConfig(gctx)
		if err != nil {
			return fmt.Errorf("bootstrap: server config: %w", err)
		}
		res.ServerConfig = cfg
		return nil
	})
	g.Go(func() error {
		st, err := b.client.GetStatus(gctx)
		if err != nil {
			log.Warn("status unavailable, continuing without it", logger.Err(err))
			return nil
		}
		status, okSt = st, true
		return nil
	})
	g.Go(func() error {
		tr, err := b.client.GetTracingInfo(gctx)
		if err != nil {
			log.Warn("tracing info unavailable, continuing without it", logger.Err(err))
			return nil
		}
		tracing, okTr = tr, true
		return nil
	})

	if err := g.Wait(); err != nil {
		return BootstrapResult{}, err
	}
	if okSt {
		res.Status = &status
	}
	if okTr {
		res.TracingInfo = &tracing
	}
	log.Debug("bootstrap done", logger.Count(len(res.Namespaces)))
	return res, nil
}
