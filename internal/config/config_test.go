package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.Session.PollInterval)
	assert.Equal(t, 3*time.Second, c.Session.PostLoginDeadline)
	assert.Equal(t, "memory", c.Store.Kind)
	assert.Equal(t, 0.001, c.Health.ErrorRate.Degraded)
	assert.Equal(t, 0.2, c.Health.ErrorRate.Failure)
}

func TestLoad_FileAndEnv(t *testing.T) {
	p := writeYAML(t, `
api:
  base_url: http://kiali:20001
session:
  warning_threshold: 2m
health:
  error_rate:
    degraded: 0.05
    failure: 0.5
`)
	t.Setenv("MESHCONSOLE_SESSION_POLL_INTERVAL", "5s")
	t.Setenv("MESHCONSOLE_STORE_KIND", "redis")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://kiali:20001", c.API.BaseURL)
	assert.Equal(t, 2*time.Minute, c.Session.WarningThreshold)
	assert.Equal(t, 5*time.Second, c.Session.PollInterval)
	assert.Equal(t, "redis", c.Store.Kind)
	assert.Equal(t, 0.05, c.Health.ErrorRate.Degraded)
}

func TestLoad_RejectsMixedScaleThresholds(t *testing.T) {
	p := writeYAML(t, `
health:
  error_rate:
    degraded: 0.1
    failure: 20
`)
	_, err := Load(p)
	require.Error(t, err)
}

func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("MESHCONSOLE_API_TIMEOUT", "soon")
	_, err := Load("")
	require.Error(t, err)
}

func TestSealKey(t *testing.T) {
	c := Default()
	k, err := c.SealKey()
	require.NoError(t, err)
	assert.Nil(t, k)

	c.Store.SealKey = "c2hvcnQ="
	_, err = c.SealKey()
	require.Error(t, err)

	c.Store.SealKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	k, err = c.SealKey()
	require.NoError(t, err)
	require.NotNil(t, k)
}
