package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/health"
	httpserver "github.com/dropDatabas3/meshconsole/internal/http"
	"github.com/dropDatabas3/meshconsole/internal/metrics"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
	"github.com/dropDatabas3/meshconsole/internal/session"
)

const loginWait = 30 * time.Second

func newLoginCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Autentica contra el backend y persiste la sesión",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctrl, err := rt.login(ctx, opts.token, loginWait)
			if err != nil {
				return err
			}
			defer ctrl.Unmount()

			st := ctrl.State()
			fmt.Printf("logged in as %s (expires %s)\n", st.Session.Username, st.Session.ExpiresOn.Format(time.RFC3339))
			if b := st.Bootstrap; b != nil {
				fmt.Printf("namespaces: %d\n", len(b.Namespaces))
				if b.TracingInfo == nil {
					fmt.Println("tracing: unavailable")
				}
			}
			return nil
		},
	}
}

func newHealthCmd(opts *globalOpts) *cobra.Command {
	var namespace, kindName string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Muestra la salud agregada de un namespace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if namespace == "" {
				return errors.New("--namespace es requerido")
			}
			kind, ok := health.ParseKind(kindName)
			if !ok {
				return fmt.Errorf("--type inválido %q (app|service|workload)", kindName)
			}

			ctx := cmd.Context()
			rt, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctrl, err := rt.login(ctx, opts.token, loginWait)
			if err != nil {
				return err
			}
			defer ctrl.Unmount()

			raw, err := rt.client.GetNamespaceHealth(ctx, namespace, kind)
			if err != nil {
				ctrl.HandleAPIError(ctx, err)
				return err
			}
			printHealth(raw, kind, rt.cfg.Health.ErrorRate)
			return nil
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace")
	cmd.Flags().StringVar(&kindName, "type", string(health.KindApp), "Variante: app|service|workload")
	return cmd
}

func printHealth(raw api.NamespaceHealth, kind health.Kind, t health.RatioThresholds) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec := raw[name].Record(name, kind, t)
		fmt.Printf("%-40s %s\n", name, rec.GlobalStatus())
		for _, it := range rec.Items() {
			if it.Text != "" {
				fmt.Printf("  %-16s %-9s %s\n", it.Title, it.Status, it.Text)
			}
		}
	}
}

func newServeCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Mantiene la sesión viva y expone estado, salud y métricas por HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := metrics.Register(nil); err != nil {
				return err
			}

			changes := make(chan session.State, 64)
			ctrl := rt.newController(changes)
			defer func() {
				ctrl.Unmount()
				ctrl.Wait()
			}()
			if ctrl.Mount(ctx, "/", "") == session.StageLogin && opts.token != "" {
				if err := ctrl.Login(ctx, api.Credentials{Token: opts.token}); err != nil {
					logger.L().Warn("initial login failed", logger.Component("cmd"), logger.Err(err))
				}
			}

			router := httpserver.NewRouter(httpserver.Deps{
				Session:    ctrl,
				Client:     rt.client,
				Thresholds: rt.cfg.Health.ErrorRate,
				Timeout:    rt.cfg.API.Timeout,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return httpserver.Serve(gctx, rt.cfg.Server.Addr, router) })
			g.Go(func() error { return logStages(gctx, changes) })
			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// logStages deja traza de cada cambio de etapa mientras corre serve.
func logStages(ctx context.Context, changes <-chan session.State) error {
	log := logger.L().With(logger.Component("cmd.serve"))
	last := session.Stage(-1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-changes:
			if st.Stage == last {
				continue
			}
			last = st.Stage
			log.Info("session stage", logger.Stage(st.Stage.String()))
			if st.LoginError != "" {
				log.Warn("login error", logger.Err(errors.New(st.LoginError)))
			}
		}
	}
}
