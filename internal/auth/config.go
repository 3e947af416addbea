package auth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/meshconsole/internal/api"
)

// Config es la configuración de autenticación del proceso. Se construye una
// vez en el bootstrap desde api.AuthInfo y es inmutable: solo expone
// accessors y devuelve copias.
type Config struct {
	strategy              Strategy
	authorizationEndpoint string
	perCluster            map[string]string
	logoutEndpoint        string
	logoutRedirect        string
}

// NewConfig valida info y construye la Config.
func NewConfig(info api.AuthInfo) (*Config, error) {
	s, err := ResolveStrategy(info.Strategy)
	if err != nil {
		return nil, err
	}
	c := &Config{
		strategy:              s,
		authorizationEndpoint: strings.TrimSpace(info.AuthorizationEndpoint),
		logoutEndpoint:        strings.TrimSpace(info.LogoutEndpoint),
		logoutRedirect:        strings.TrimSpace(info.LogoutRedirect),
	}
	if len(info.AuthorizationEndpointPerCluster) > 0 {
		c.perCluster = make(map[string]string, len(info.AuthorizationEndpointPerCluster))
		for k, v := range info.AuthorizationEndpointPerCluster {
			c.perCluster[k] = v
		}
	}
	if _, ok := s.(OAuth); ok && c.authorizationEndpoint == "" && len(c.perCluster) == 0 {
		return nil, fmt.Errorf("auth: strategy %s requires an authorization endpoint", s.Kind())
	}
	return c, nil
}

func (c *Config) Strategy() Strategy            { return c.strategy }
func (c *Config) AuthorizationEndpoint() string { return c.authorizationEndpoint }
func (c *Config) LogoutEndpoint() string        { return c.logoutEndpoint }
func (c *Config) LogoutRedirect() string        { return c.logoutRedirect }

// AuthorizationEndpointFor prioriza el endpoint propio del cluster.
func (c *Config) AuthorizationEndpointFor(cluster string) string {
	if cluster != "" {
		if ep, ok := c.perCluster[cluster]; ok && ep != "" {
			return ep
		}
	}
	return c.authorizationEndpoint
}

// LogoutURL arma la URL de logout del proveedor. Vacía si no hay endpoint.
func (c *Config) LogoutURL() string {
	if c.logoutEndpoint == "" {
		return ""
	}
	if c.logoutRedirect == "" {
		return c.logoutEndpoint
	}
	u, err := url.Parse(c.logoutEndpoint)
	if err != nil {
		return c.logoutEndpoint
	}
	q := u.Query()
	q.Set("redirect_uri", c.logoutRedirect)
	u.RawQuery = q.Encode()
	return u.String()
}
