package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/health"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	r := chi.NewRouter()
	r.Post("/api/authenticate", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("token") != "good" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		if r.Header.Get("X-Request-ID") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing request id"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		writeJSON(w, http.StatusOK, SessionInfo{Username: "alice", ExpiresOn: expires})
	})
	r.Get("/api/namespaces", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, []Namespace{{Name: "bookinfo"}})
	})
	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.Get("/api/namespaces/{ns}/health", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "ns") != "bookinfo" || r.URL.Query().Get("type") != "app" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, NamespaceHealth{
			"reviews": {
				WorkloadStatuses: []WorkloadReplicas{{Name: "reviews-v1", AvailableReplicas: 1, DesiredReplicas: 1}},
				Requests:         RequestRates{Inbound: map[string]float64{"200": 10}},
				HasSidecar:       true,
			},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_LoginAndCookie(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewHTTPClient(srv.URL, 5*time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.GetNamespaces(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	s, err := c.Login(ctx, Credentials{Token: "good"})
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, 2030, s.ExpiresOn.Year())

	ns, err := c.GetNamespaces(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "bookinfo", ns[0].Name)
}

func TestHTTPClient_Errors(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewHTTPClient(srv.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), Credentials{Token: "bad"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "invalid token")

	_, err = c.GetStatus(context.Background())
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestHTTPClient_NamespaceHealth(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewHTTPClient(srv.URL, 5*time.Second)
	require.NoError(t, err)

	nh, err := c.GetNamespaceHealth(context.Background(), "bookinfo", health.KindApp)
	require.NoError(t, err)
	raw, ok := nh["reviews"]
	require.True(t, ok)

	rec := raw.Record("reviews", health.KindApp, health.DefaultErrorRateThresholds)
	assert.Equal(t, health.Healthy, rec.GlobalStatus())
}

func TestRawHealth_WorkloadVariant(t *testing.T) {
	raw := RawHealth{
		WorkloadStatus: &WorkloadReplicas{Name: "w", AvailableReplicas: 0, DesiredReplicas: 3},
		HasSidecar:     false,
	}
	rec := raw.Record("w", health.KindWorkload, health.DefaultErrorRateThresholds)
	assert.Equal(t, health.KindWorkload, rec.Kind())
	assert.Equal(t, health.Failure, rec.GlobalStatus())
}
