// Package apitest provee un api.Client programable para tests.
package apitest

import (
	"context"
	"sync"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/health"
)

// Fake delega en las funciones seteadas; las que quedan en nil devuelven
// el zero value sin error. Cuenta las llamadas por operación.
type Fake struct {
	LoginFn           func(ctx context.Context, creds api.Credentials) (api.SessionInfo, error)
	LogoutFn          func(ctx context.Context) error
	AuthInfoFn        func(ctx context.Context) (api.AuthInfo, error)
	NamespacesFn      func(ctx context.Context) ([]api.Namespace, error)
	ServerConfigFn    func(ctx context.Context) (api.ServerConfig, error)
	StatusFn          func(ctx context.Context) (api.StatusInfo, error)
	TracingInfoFn     func(ctx context.Context) (api.TracingInfo, error)
	NamespaceHealthFn func(ctx context.Context, ns string, kind health.Kind) (api.NamespaceHealth, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ api.Client = (*Fake)(nil)

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

// Calls devuelve cuántas veces se llamó op.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) Login(ctx context.Context, creds api.Credentials) (api.SessionInfo, error) {
	f.record("Login")
	if f.LoginFn == nil {
		return api.SessionInfo{}, nil
	}
	return f.LoginFn(ctx, creds)
}

func (f *Fake) Logout(ctx context.Context) error {
	f.record("Logout")
	if f.LogoutFn == nil {
		return nil
	}
	return f.LogoutFn(ctx)
}

func (f *Fake) GetAuthInfo(ctx context.Context) (api.AuthInfo, error) {
	f.record("GetAuthInfo")
	if f.AuthInfoFn == nil {
		return api.AuthInfo{}, nil
	}
	return f.AuthInfoFn(ctx)
}

func (f *Fake) GetNamespaces(ctx context.Context) ([]api.Namespace, error) {
	f.record("GetNamespaces")
	if f.NamespacesFn == nil {
		return nil, nil
	}
	return f.NamespacesFn(ctx)
}

func (f *Fake) GetServerConfig(ctx context.Context) (api.ServerConfig, error) {
	f.record("GetServerConfig")
	if f.ServerConfigFn == nil {
		return api.ServerConfig{}, nil
	}
	return f.ServerConfigFn(ctx)
}

func (f *Fake) GetStatus(ctx context.Context) (api.StatusInfo, error) {
	f.record("GetStatus")
	if f.StatusFn == nil {
		return api.StatusInfo{}, nil
	}
	return f.StatusFn(ctx)
}

func (f *Fake) GetTracingInfo(ctx context.Context) (api.TracingInfo, error) {
	f.record("GetTracingInfo")
	if f.TracingInfoFn == nil {
		return api.TracingInfo{}, nil
	}
	return f.TracingInfoFn(ctx)
}

func (f *Fake) GetNamespaceHealth(ctx context.Context, ns string, kind health.Kind) (api.NamespaceHealth, error) {
	f.record("GetNamespaceHealth")
	if f.NamespaceHealthFn == nil {
		return api.NamespaceHealth{}, nil
	}
	return f.NamespaceHealthFn(ctx, ns, kind)
}
