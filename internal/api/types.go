package api

import (
	"time"

	"github.com/dropDatabas3/meshconsole/internal/health"
)

// Credentials es lo que el usuario aporta al login. Vacío para las
// estrategias sin interacción.
type Credentials struct {
	Token string `json:"-"`
}

// ClusterInfo identifica el cluster al que pertenece la sesión.
type ClusterInfo struct {
	Name    string `json:"name"`
	Network string `json:"network,omitempty"`
}

// SessionInfo es la sesión tal como la reporta el backend.
type SessionInfo struct {
	Username    string       `json:"username"`
	ExpiresOn   time.Time    `json:"expiresOn"`
	ClusterInfo *ClusterInfo `json:"clusterInfo,omitempty"`
}

// AuthInfo es la configuración de autenticación publicada por el backend.
type AuthInfo struct {
	Strategy                        string            `json:"strategy"`
	AuthorizationEndpoint           string            `json:"authorizationEndpoint,omitempty"`
	AuthorizationEndpointPerCluster map[string]string `json:"authorizationEndpointPerCluster,omitempty"`
	LogoutEndpoint                  string            `json:"logoutEndpoint,omitempty"`
	LogoutRedirect                  string            `json:"logoutRedirect,omitempty"`
	SessionInfo                     *SessionInfo      `json:"sessionInfo,omitempty"`
}

type Namespace struct {
	Name    string            `json:"name"`
	Cluster string            `json:"cluster,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

type ServerConfig struct {
	InstallationTag string                 `json:"installationTag,omitempty"`
	IstioNamespace  string                 `json:"istioNamespace"`
	Clusters        map[string]ClusterInfo `json:"clusters,omitempty"`
}

type ExternalService struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	URL     string `json:"url,omitempty"`
}

type StatusInfo struct {
	Status           map[string]string `json:"status"`
	ExternalServices []ExternalService `json:"externalServices"`
	WarningMessages  []string          `json:"warningMessages"`
}

type TracingInfo struct {
	Enabled     bool   `json:"enabled"`
	Integration bool   `json:"integration"`
	Provider    string `json:"provider,omitempty"`
	URL         string `json:"url,omitempty"`
}

// WorkloadReplicas es la disponibilidad cruda de un workload.
type WorkloadReplicas struct {
	Name              string `json:"name"`
	AvailableReplicas int    `json:"availableReplicas"`
	DesiredReplicas   int    `json:"desiredReplicas"`
}

// RequestRates son tasas de request por código de respuesta.
type RequestRates struct {
	Inbound  map[string]float64 `json:"inbound"`
	Outbound map[string]float64 `json:"outbound"`
}

// RawHealth es la salud sin procesar de una entidad.
type RawHealth struct {
	WorkloadStatuses []WorkloadReplicas `json:"workloadStatuses,omitempty"`
	WorkloadStatus   *WorkloadReplicas  `json:"workloadStatus,omitempty"`
	Requests         RequestRates       `json:"requests"`
	HasSidecar       bool               `json:"hasSidecar"`
}

// NamespaceHealth indexa RawHealth por nombre de entidad.
type NamespaceHealth map[string]RawHealth

// Record convierte la salud cruda al agregado de la variante pedida.
func (r RawHealth) Record(name string, kind health.Kind, t health.RatioThresholds) health.Record {
	requests := health.RequestHealthFromRates(r.Requests.Inbound, r.Requests.Outbound)
	switch kind {
	case health.KindService:
		return health.NewServiceHealth(requests, r.HasSidecar, t)
	case health.KindWorkload:
		w := health.WorkloadStatus{Name: name}
		if r.WorkloadStatus != nil {
			w = toWorkloadStatus(*r.WorkloadStatus)
		}
		return health.NewWorkloadHealth(w, requests, r.HasSidecar, t)
	default:
		ws := make([]health.WorkloadStatus, 0, len(r.WorkloadStatuses))
		for _, w := range r.WorkloadStatuses {
			ws = append(ws, toWorkloadStatus(w))
		}
		return health.NewAppHealth(ws, requests, r.HasSidecar, t)
	}
}

func toWorkloadStatus(w WorkloadReplicas) health.WorkloadStatus {
	return health.WorkloadStatus{Name: w.Name, Available: w.AvailableReplicas, Replicas: w.DesiredReplicas}
}
