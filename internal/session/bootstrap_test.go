package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/api/apitest"
)

func bootstrapFake() *apitest.Fake {
	return &apitest.Fake{
		NamespacesFn: func(context.Context) ([]api.Namespace, error) {
			return []api.Namespace{{Name: "bookinfo"}, {Name: "istio-system"}}, nil
		},
		ServerConfigFn: func(context.Context) (api.ServerConfig, error) {
			return api.ServerConfig{IstioNamespace: "istio-system"}, nil
		},
		StatusFn: func(context.Context) (api.StatusInfo, error) {
			return api.StatusInfo{Status: map[string]string{"version": "1.0"}}, nil
		},
		TracingInfoFn: func(context.Context) (api.TracingInfo, error) {
			return api.TracingInfo{Enabled: true, Provider: "jaeger"}, nil
		},
	}
}

func TestBootstrapAllSucceed(t *testing.T) {
	res, err := NewBootstrapper(bootstrapFake()).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Namespaces, 2)
	assert.Equal(t, "istio-system", res.ServerConfig.IstioNamespace)
	require.NotNil(t, res.Status)
	require.NotNil(t, res.TracingInfo)
	assert.Equal(t, "jaeger", res.TracingInfo.Provider)
}

func TestBootstrapRecoversOptionalFetches(t *testing.T) {
	f := bootstrapFake()
	f.TracingInfoFn = func(context.Context) (api.TracingInfo, error) {
		return api.TracingInfo{}, &api.Error{StatusCode: 503, Message: "tracing down"}
	}
	f.StatusFn = func(context.Context) (api.StatusInfo, error) {
		return api.StatusInfo{}, errors.New("status down")
	}

	res, err := NewBootstrapper(f).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.TracingInfo)
	assert.Nil(t, res.Status)
	assert.Len(t, res.Namespaces, 2)
}

func TestBootstrapFailsOnRequiredFetch(t *testing.T) {
	boom := errors.New("namespaces down")
	f := bootstrapFake()
	f.NamespacesFn = func(context.Context) ([]api.Namespace, error) { return nil, boom }

	_, err := NewBootstrapper(f).Run(context.Background())
	require.ErrorIs(t, err, boom)

	f = bootstrapFake()
	f.ServerConfigFn = func(context.Context) (api.ServerConfig, error) {
		return api.ServerConfig{}, &api.Error{StatusCode: 401, Message: "unauthorized"}
	}
	_, err = NewBootstrapper(f).Run(context.Background())
	assert.True(t, api.IsUnauthorized(err))
}
