package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/api"
	"github.com/dropDatabas3/meshconsole/internal/api/apitest"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func mustConfig(t *testing.T, info api.AuthInfo) *Config {
	t.Helper()
	c, err := NewConfig(info)
	require.NoError(t, err)
	return c
}

func signedIDToken(t *testing.T, claims jwtv5.MapClaims) string {
	t.Helper()
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestResolveStrategy(t *testing.T) {
	cases := map[string]StrategyKind{
		"anonymous": KindAnonymous,
		"Token":     KindToken,
		"header":    KindHeader,
		"openid":    KindOpenID,
		"openshift": KindOpenShift,
	}
	for name, want := range cases {
		s, err := ResolveStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, s.Kind())
	}
	_, err := ResolveStrategy("saml")
	require.Error(t, err)

	a, _ := ResolveStrategy("anonymous")
	h, _ := ResolveStrategy("header")
	o, _ := ResolveStrategy("openid")
	assert.False(t, a.RequiresInteraction())
	assert.False(t, h.RequiresInteraction())
	assert.True(t, o.RequiresInteraction())
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(api.AuthInfo{Strategy: "openid"})
	require.Error(t, err)

	c := mustConfig(t, api.AuthInfo{
		Strategy:                        "openid",
		AuthorizationEndpoint:           "https://idp/auth",
		AuthorizationEndpointPerCluster: map[string]string{"east": "https://idp-east/auth"},
		LogoutEndpoint:                  "https://idp/logout",
		LogoutRedirect:                  "https://console/",
	})
	assert.Equal(t, "https://idp-east/auth", c.AuthorizationEndpointFor("east"))
	assert.Equal(t, "https://idp/auth", c.AuthorizationEndpointFor("west"))
	assert.Equal(t, "https://idp/logout?redirect_uri=https%3A%2F%2Fconsole%2F", c.LogoutURL())

	tok := mustConfig(t, api.AuthInfo{Strategy: "token"})
	assert.Empty(t, tok.LogoutURL())
}

func TestParseCallback(t *testing.T) {
	_, ok := ParseCallback("#/overview")
	assert.False(t, ok)

	idt := signedIDToken(t, jwtv5.MapClaims{
		"sub":                "1234",
		"preferred_username": "bob",
		"exp":                now.Add(time.Hour).Unix(),
	})
	cb, ok := ParseCallback("#access_token=abc&id_token=" + idt + "&expires_in=600&state=xyz")
	require.True(t, ok)
	assert.Equal(t, "abc", cb.AccessToken)
	assert.Equal(t, "xyz", cb.State)
	assert.Equal(t, 10*time.Minute, cb.ExpiresIn)

	s, ok := cb.Session(now)
	require.True(t, ok)
	assert.Equal(t, "bob", s.Username)
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresOn.Unix())
}

func TestCallbackSession_Expired(t *testing.T) {
	idt := signedIDToken(t, jwtv5.MapClaims{"sub": "bob", "exp": now.Add(-time.Minute).Unix()})
	cb, ok := ParseCallback("id_token=" + idt)
	require.True(t, ok)
	_, ok = cb.Session(now)
	assert.False(t, ok)
}

func TestDispatcher_Prepare(t *testing.T) {
	fake := &apitest.Fake{}
	ctx := context.Background()

	d := NewDispatcher(mustConfig(t, api.AuthInfo{Strategy: "token"}), fake, fixedNow)
	assert.Equal(t, Continue, d.Prepare(ctx, PrepareRequest{}).Result)

	oauth := NewDispatcher(mustConfig(t, api.AuthInfo{Strategy: "openshift", AuthorizationEndpoint: "https://oauth/authorize"}), fake, fixedNow)
	res := oauth.Prepare(ctx, PrepareRequest{})
	assert.Equal(t, Hold, res.Result)
	assert.Equal(t, "https://oauth/authorize", res.RedirectURL)

	res = oauth.Prepare(ctx, PrepareRequest{Callback: &Callback{AccessToken: "x"}})
	assert.Equal(t, Continue, res.Result)
}

func TestDispatcher_PerformToken(t *testing.T) {
	fake := &apitest.Fake{
		LoginFn: func(_ context.Context, creds api.Credentials) (api.SessionInfo, error) {
			if creds.Token != "good" {
				return api.SessionInfo{}, &api.Error{StatusCode: http.StatusUnauthorized, Message: "bad token"}
			}
			return api.SessionInfo{Username: "sa", ExpiresOn: now.Add(time.Hour)}, nil
		},
	}
	d := NewDispatcher(mustConfig(t, api.AuthInfo{Strategy: "token"}), fake, fixedNow)
	ctx := context.Background()

	res := d.Perform(ctx, PerformRequest{})
	assert.Equal(t, Failure, res.Result)
	assert.ErrorIs(t, res.Err, ErrMissingToken)
	assert.Equal(t, 0, fake.Calls("Login"))

	res = d.Perform(ctx, PerformRequest{Credentials: api.Credentials{Token: "bad"}})
	assert.Equal(t, Failure, res.Result)
	require.Error(t, res.Err)
	assert.True(t, api.IsUnauthorized(res.Err))

	res = d.Perform(ctx, PerformRequest{Credentials: api.Credentials{Token: "good"}})
	require.Equal(t, Success, res.Result)
	require.NotNil(t, res.Session)
	assert.Equal(t, "sa", res.Session.Username)
}

func TestDispatcher_PerformAnonymousWrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	fake := &apitest.Fake{
		LoginFn: func(context.Context, api.Credentials) (api.SessionInfo, error) { return api.SessionInfo{}, boom },
	}
	d := NewDispatcher(mustConfig(t, api.AuthInfo{Strategy: "anonymous"}), fake, fixedNow)
	res := d.Perform(context.Background(), PerformRequest{})
	assert.Equal(t, Failure, res.Result)
	assert.ErrorIs(t, res.Err, boom)
}

func TestDispatcher_PerformOAuthIsLocal(t *testing.T) {
	fake := &apitest.Fake{}
	d := NewDispatcher(mustConfig(t, api.AuthInfo{Strategy: "openid", AuthorizationEndpoint: "https://idp"}), fake, fixedNow)

	res := d.Perform(context.Background(), PerformRequest{})
	assert.Equal(t, Success, res.Result)
	assert.Nil(t, res.Session)
	assert.Equal(t, 0, fake.Calls("Login"))
}

func TestDispatcher_PerformOAuthMarksCallbackSession(t *testing.T) {
	fake := &apitest.Fake{}
	d := NewDispatcher(mustConfig(t, api.AuthInfo{Strategy: "openid", AuthorizationEndpoint: "https://idp"}), fake, fixedNow)
	idt := signedIDToken(t, jwtv5.MapClaims{"preferred_username": "bob", "exp": now.Add(time.Hour).Unix()})
	cb, ok := ParseCallback("id_token=" + idt)
	require.True(t, ok)

	res := d.Perform(context.Background(), PerformRequest{Callback: cb})
	require.Equal(t, Success, res.Result)
	require.NotNil(t, res.Session)
	assert.True(t, res.FromCallback)
	assert.Equal(t, "bob", res.Session.Username)
}

func TestSession_ExtendedFromDoesNotCompound(t *testing.T) {
	s := Session{Username: "a", ExpiresOn: now.Add(10 * time.Minute)}
	ext := s.ExtendedFrom(now, 30*time.Minute)
	assert.Equal(t, now.Add(30*time.Minute), ext.ExpiresOn)
	assert.Equal(t, now.Add(10*time.Minute), s.ExpiresOn)
	assert.True(t, ext.Valid(now))
	assert.False(t, ext.Valid(now.Add(30*time.Minute)))
}
