package auth

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Callback son los parámetros que el proveedor OAuth deja en el fragmento
// de la URL al volver del redirect.
type Callback struct {
	AccessToken string
	IDToken     string
	State       string
	ExpiresIn   time.Duration
}

// HasCallback detecta access_token= o id_token= en el fragmento.
func HasCallback(fragment string) bool {
	return strings.Contains(fragment, "access_token=") || strings.Contains(fragment, "id_token=")
}

// ParseCallback extrae el callback del fragmento ("#a=b&c=d" o "a=b&c=d").
func ParseCallback(fragment string) (*Callback, bool) {
	if !HasCallback(fragment) {
		return nil, false
	}
	q, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return nil, false
	}
	cb := &Callback{
		AccessToken: q.Get("access_token"),
		IDToken:     q.Get("id_token"),
		State:       q.Get("state"),
	}
	if cb.AccessToken == "" && cb.IDToken == "" {
		return nil, false
	}
	if secs, err := strconv.Atoi(q.Get("expires_in")); err == nil && secs > 0 {
		cb.ExpiresIn = time.Duration(secs) * time.Second
	}
	return cb, true
}

// Session deriva la sesión desde los claims del id_token. La firma no se
// verifica acá: el backend es quien valida el token, esto solo alimenta la
// UI mientras tanto. Sin id_token usa expires_in.
func (c *Callback) Session(now time.Time) (Session, bool) {
	var s Session
	if c.IDToken != "" {
		claims := jwtv5.MapClaims{}
		if _, _, err := jwtv5.NewParser().ParseUnverified(c.IDToken, claims); err == nil {
			if v, ok := claims["preferred_username"].(string); ok {
				s.Username = v
			}
			if s.Username == "" {
				s.Username, _ = claims.GetSubject()
			}
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				s.ExpiresOn = exp.Time
			}
		}
	}
	if s.ExpiresOn.IsZero() && c.ExpiresIn > 0 {
		s.ExpiresOn = now.Add(c.ExpiresIn)
	}
	if s.Username == "" || !s.Valid(now) {
		return Session{}, false
	}
	return s, true
}
