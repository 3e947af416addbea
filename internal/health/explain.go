package health

import "fmt"

const (
	textNoWorkloads        = "No workloads found"
	textNoActiveDeployment = "No active deployment"
	textNoSidecar          = "No sidecar, no request visibility"
	textNoRequests         = "No requests"
)

// Explain arma el mensaje para un umbral violado.
func Explain(v Violation) string {
	return fmt.Sprintf("%s >= %s (%s threshold)", formatPercent(v.Actual), formatPercent(v.Threshold), v.Kind)
}

func podsText(w WorkloadStatus) string {
	return fmt.Sprintf("%d / %d", w.Available, w.Replicas)
}

func ratioText(ratio float64, v *Violation) string {
	if ratio < 0 {
		return textNoRequests
	}
	if v != nil {
		return Explain(*v)
	}
	return formatPercent(ratio)
}

func formatPercent(r float64) string {
	return fmt.Sprintf("%.2f%%", r*100)
}
