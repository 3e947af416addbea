package health

import (
	"fmt"
	"math"
)

// RatioThresholds son umbrales ascendentes en espacio de ratio [0,1].
type RatioThresholds struct {
	Degraded float64 `json:"degraded" yaml:"degraded"`
	Failure  float64 `json:"failure" yaml:"failure"`
}

// DefaultErrorRateThresholds: 0.1% degrada, 20% falla.
var DefaultErrorRateThresholds = RatioThresholds{Degraded: 0.001, Failure: 0.2}

// Validate exige 0 <= degraded <= failure <= 1.
func (t RatioThresholds) Validate() error {
	if t.Degraded < 0 || t.Failure > 1 {
		return fmt.Errorf("health: thresholds out of [0,1]: degraded=%v failure=%v", t.Degraded, t.Failure)
	}
	if t.Degraded > t.Failure {
		return fmt.Errorf("health: degraded threshold %v above failure threshold %v", t.Degraded, t.Failure)
	}
	return nil
}

// BoundKind identifica qué umbral se violó.
type BoundKind string

const (
	BoundDegraded BoundKind = "degraded"
	BoundFailure  BoundKind = "failure"
)

// Violation describe el umbral superado. El texto para el usuario se arma
// fuera del clasificador (ver Explain).
type Violation struct {
	Kind      BoundKind `json:"kind"`
	Threshold float64   `json:"threshold"`
	Actual    float64   `json:"actual"`
}

// ThresholdResult es la salida de ClassifyThreshold. Violated es nil cuando
// el ratio quedó por debajo de ambos umbrales o no aplica.
type ThresholdResult struct {
	Status   Status     `json:"status"`
	Violated *Violation `json:"violated,omitempty"`
}

// ClassifyRatio clasifica valid/total (p.ej. pods disponibles / réplicas).
func ClassifyRatio(valid, total int) Status {
	switch {
	case total <= 0:
		return NotAvailable
	case valid <= 0:
		return Failure
	case valid == total:
		return Healthy
	default:
		// incluye valid > total, que no debería pasar pero no rompe nada
		return Degraded
	}
}

// ClassifyThreshold compara un ratio contra umbrales ascendentes. Cualquier
// ratio negativo (el sentinel NotApplicable) o NaN corta en NotAvailable
// antes de comparar.
func ClassifyThreshold(ratio float64, t RatioThresholds) ThresholdResult {
	if math.IsNaN(ratio) || ratio < 0 {
		return ThresholdResult{Status: NotAvailable}
	}
	if ratio >= t.Failure {
		return ThresholdResult{
			Status:   Failure,
			Violated: &Violation{Kind: BoundFailure, Threshold: t.Failure, Actual: ratio},
		}
	}
	if ratio >= t.Degraded {
		return ThresholdResult{
			Status:   Degraded,
			Violated: &Violation{Kind: BoundDegraded, Threshold: t.Degraded, Actual: ratio},
		}
	}
	return ThresholdResult{Status: Healthy}
}
