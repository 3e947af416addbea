package auth

import (
	"time"

	"github.com/dropDatabas3/meshconsole/internal/api"
)

// Session es la sesión de login. Se reemplaza entera al extenderla; nunca
// se modifica en el lugar.
type Session struct {
	Username    string           `json:"username"`
	ExpiresOn   time.Time        `json:"expiresOn"`
	ClusterInfo *api.ClusterInfo `json:"clusterInfo,omitempty"`
}

// SessionFromInfo copia la sesión reportada por el backend.
func SessionFromInfo(info api.SessionInfo) Session {
	s := Session{Username: info.Username, ExpiresOn: info.ExpiresOn}
	if info.ClusterInfo != nil {
		ci := *info.ClusterInfo
		s.ClusterInfo = &ci
	}
	return s
}

// Valid: la sesión es válida estrictamente antes de ExpiresOn.
func (s Session) Valid(now time.Time) bool {
	return s.Username != "" && now.Before(s.ExpiresOn)
}

func (s Session) Remaining(now time.Time) time.Duration {
	return s.ExpiresOn.Sub(now)
}

// ExtendedFrom devuelve una sesión nueva que vence en now+length. No suma
// sobre el vencimiento anterior.
func (s Session) ExtendedFrom(now time.Time, length time.Duration) Session {
	out := s
	out.ExpiresOn = now.Add(length)
	return out
}
