// Package health contiene el modelo de salud: clasificación por ratio y por
// umbral, merge por prioridad y los agregados de service/app/workload.
//
// Todo el paquete es puro y síncrono. Un Record se construye una vez por
// fetch y no se muta después.
package health

import (
	"encoding/json"
	"fmt"
)

// Status es una severidad con orden total por prioridad.
type Status int

const (
	NotAvailable Status = iota
	Healthy
	Degraded
	Failure
)

// NotApplicable marca un ratio sin observaciones (sin denominador).
const NotApplicable float64 = -1

var statusNames = [...]string{
	NotAvailable: "NA",
	Healthy:      "Healthy",
	Degraded:     "Degraded",
	Failure:      "Failure",
}

// Priority devuelve la prioridad fija del status. Valores fuera de rango
// se tratan como NotAvailable.
func (s Status) Priority() int {
	if s < NotAvailable || s > Failure {
		return 0
	}
	return int(s)
}

func (s Status) String() string {
	if s < NotAvailable || s > Failure {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus convierte el nombre serializado de vuelta a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return NotAvailable, fmt.Errorf("health: unknown status %q", name)
}

// Merge devuelve el status de mayor prioridad. Es conmutativo y asociativo.
func Merge(a, b Status) Status {
	if b.Priority() > a.Priority() {
		return b
	}
	if a.Priority() > b.Priority() {
		return a
	}
	// empate: normalizamos fuera-de-rango a NotAvailable
	if a.Priority() == 0 {
		return NotAvailable
	}
	return a
}

// MergeAll pliega la lista partiendo de NotAvailable.
func MergeAll(statuses ...Status) Status {
	out := NotAvailable
	for _, s := range statuses {
		out = Merge(out, s)
	}
	return out
}
