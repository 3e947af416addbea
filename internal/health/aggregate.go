package health

import "encoding/json"

// Kind identifica la variante del agregado.
type Kind string

const (
	KindApp      Kind = "app"
	KindService  Kind = "service"
	KindWorkload Kind = "workload"
)

// ParseKind acepta "app", "service" o "workload".
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindApp, KindService, KindWorkload:
		return Kind(s), true
	}
	return "", false
}

const (
	TitlePods      = "Pods Status"
	TitleErrorRate = "Error Rate"
	TitleInbound   = "Inbound"
	TitleOutbound  = "Outbound"
)

// WorkloadStatus es la disponibilidad de un workload. Available puede
// superar Replicas si el backend reporta datos inconsistentes.
type WorkloadStatus struct {
	Name      string `json:"name"`
	Available int    `json:"available"`
	Replicas  int    `json:"replicas"`
}

// SubItem es una fila de drill-down dentro de un Item.
type SubItem struct {
	Status   Status     `json:"status"`
	Title    string     `json:"title"`
	Text     string     `json:"text,omitempty"`
	Value    *float64   `json:"value,omitempty"`
	Violated *Violation `json:"violated,omitempty"`
}

// Item es una dimensión de salud (pods, error rate).
type Item struct {
	Status   Status    `json:"status"`
	Title    string    `json:"title"`
	Text     string    `json:"text,omitempty"`
	Children []SubItem `json:"children,omitempty"`
}

// Record es el resultado inmutable de un cálculo de salud.
type Record struct {
	kind   Kind
	items  []Item
	global Status
}

func (r Record) Kind() Kind { return r.kind }

// GlobalStatus es el merge de todos los items partiendo de NotAvailable.
func (r Record) GlobalStatus() Status { return r.global }

// Items devuelve una copia; el Record no cambia aunque el caller la modifique.
func (r Record) Items() []Item {
	out := make([]Item, len(r.items))
	for i, it := range r.items {
		out[i] = it
		if it.Children != nil {
			out[i].Children = append([]SubItem(nil), it.Children...)
		}
	}
	return out
}

// Item busca un item por título.
func (r Record) Item(title string) (Item, bool) {
	for _, it := range r.Items() {
		if it.Title == title {
			return it, true
		}
	}
	return Item{}, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind         Kind   `json:"kind"`
		GlobalStatus Status `json:"globalStatus"`
		Items        []Item `json:"items"`
	}{r.kind, r.global, r.items})
}

func newRecord(kind Kind, items ...Item) Record {
	global := NotAvailable
	for _, it := range items {
		global = Merge(global, it.Status)
	}
	return Record{kind: kind, items: items, global: global}
}

// NewAppHealth compone la salud de una app: disponibilidad de cada workload
// más el error rate de requests.
func NewAppHealth(workloads []WorkloadStatus, requests RequestHealth, hasSidecar bool, t RatioThresholds) Record {
	return newRecord(KindApp, podsItem(workloads), errorRateItem(requests, hasSidecar, t))
}

// NewWorkloadHealth es NewAppHealth con un único workload.
func NewWorkloadHealth(workload WorkloadStatus, requests RequestHealth, hasSidecar bool, t RatioThresholds) Record {
	return newRecord(KindWorkload, podsItem([]WorkloadStatus{workload}), errorRateItem(requests, hasSidecar, t))
}

// NewServiceHealth solo tiene la dimensión de requests.
func NewServiceHealth(requests RequestHealth, hasSidecar bool, t RatioThresholds) Record {
	return newRecord(KindService, errorRateItem(requests, hasSidecar, t))
}

// ComputeAggregateHealth usa los umbrales por defecto.
func ComputeAggregateHealth(workloads []WorkloadStatus, requests RequestHealth, hasSidecar bool) Record {
	return NewAppHealth(workloads, requests, hasSidecar, DefaultErrorRateThresholds)
}

func podsItem(workloads []WorkloadStatus) Item {
	item := Item{Status: NotAvailable, Title: TitlePods}
	if len(workloads) == 0 {
		item.Text = textNoWorkloads
		return item
	}

	allNA := true
	item.Children = make([]SubItem, 0, len(workloads))
	for _, w := range workloads {
		st := ClassifyRatio(w.Available, w.Replicas)
		if st != NotAvailable {
			allNA = false
		}
		item.Status = Merge(item.Status, st)
		item.Children = append(item.Children, SubItem{
			Status: st,
			Title:  w.Name,
			Text:   podsText(w),
		})
	}
	// todo el fleet en cero réplicas es una caída, no "sin datos"
	if allNA {
		item.Status = Failure
		item.Text = textNoActiveDeployment
	}
	return item
}

func errorRateItem(requests RequestHealth, hasSidecar bool, t RatioThresholds) Item {
	item := Item{Status: NotAvailable, Title: TitleErrorRate}
	if !hasSidecar {
		item.Text = textNoSidecar
		return item
	}

	inbound := requestSubItem(TitleInbound, requests.InboundErrorRatio, t)
	outbound := requestSubItem(TitleOutbound, requests.OutboundErrorRatio, t)
	item.Status = Merge(inbound.Status, outbound.Status)
	item.Children = []SubItem{inbound, outbound}
	if item.Status == NotAvailable {
		item.Text = textNoRequests
	}
	return item
}

func requestSubItem(title string, ratio float64, t RatioThresholds) SubItem {
	res := ClassifyThreshold(ratio, t)
	sub := SubItem{Status: res.Status, Title: title, Violated: res.Violated}
	if ratio >= 0 {
		v := ratio
		sub.Value = &v
	}
	sub.Text = ratioText(ratio, res.Violated)
	return sub
}
