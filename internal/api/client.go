// Package api es el cliente del backend de observabilidad.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/meshconsole/internal/health"
	"github.com/dropDatabas3/meshconsole/internal/observability/logger"
)

// Client es el contrato del backend que consumen el state machine de sesión
// y el modelo de salud.
type Client interface {
	Login(ctx context.Context, creds Credentials) (SessionInfo, error)
	Logout(ctx context.Context) error
	GetAuthInfo(ctx context.Context) (AuthInfo, error)
	GetNamespaces(ctx context.Context) ([]Namespace, error)
	GetServerConfig(ctx context.Context) (ServerConfig, error)
	GetStatus(ctx context.Context) (StatusInfo, error)
	GetTracingInfo(ctx context.Context) (TracingInfo, error)
	GetNamespaceHealth(ctx context.Context, namespace string, kind health.Kind) (NamespaceHealth, error)
}

// HTTPClient implementa Client sobre HTTP. La cookie de sesión vive en el
// cookie jar del http.Client.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient crea un cliente con cookie jar propio.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	reqID := uuid.NewString()
	log := logger.From(ctx).With(
		logger.Layer("client"),
		logger.Component("api"),
		logger.Method(method),
		logger.Path(path),
		logger.RequestID(reqID),
	)

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Debug("request failed", logger.Err(err))
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	log.Debug("request done", logger.StatusCode(resp.StatusCode), logger.Duration(time.Since(start)))

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if json.Unmarshal(b, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (SessionInfo, error) {
	form := url.Values{}
	if creds.Token != "" {
		form.Set("token", creds.Token)
	}
	var out SessionInfo
	err := c.do(ctx, http.MethodPost, "/api/authenticate", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out)
	return out, err
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.get(ctx, "/api/logout", nil)
}

func (c *HTTPClient) GetAuthInfo(ctx context.Context) (AuthInfo, error) {
	var out AuthInfo
	err := c.get(ctx, "/api/auth/info", &out)
	return out, err
}

func (c *HTTPClient) GetNamespaces(ctx context.Context) ([]Namespace, error) {
	var out []Namespace
	err := c.get(ctx, "/api/namespaces", &out)
	return out, err
}

func (c *HTTPClient) GetServerConfig(ctx context.Context) (ServerConfig, error) {
	var out ServerConfig
	err := c.get(ctx, "/api/config", &out)
	return out, err
}

func (c *HTTPClient) GetStatus(ctx context.Context) (StatusInfo, error) {
	var out StatusInfo
	err := c.get(ctx, "/api/status", &out)
	return out, err
}

func (c *HTTPClient) GetTracingInfo(ctx context.Context) (TracingInfo, error) {
	var out TracingInfo
	err := c.get(ctx, "/api/tracing", &out)
	return out, err
}

func (c *HTTPClient) GetNamespaceHealth(ctx context.Context, namespace string, kind health.Kind) (NamespaceHealth, error) {
	q := url.Values{}
	q.Set("type", string(kind))
	var out NamespaceHealth
	err := c.get(ctx, "/api/namespaces/"+url.PathEscape(namespace)+"/health?"+q.Encode(), &out)
	return out, err
}
