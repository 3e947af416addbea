package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/health"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	rec := health.ComputeAggregateHealth([]health.WorkloadStatus{{Name: "a", Available: 1, Replicas: 4}}, health.NoRequests, true)
	ObserveHealth("bookinfo", "reviews", rec)

	families, err := reg.Gather()
	require.NoError(t, err)

	var got float64
	found := false
	for _, mf := range families {
		if mf.GetName() != "meshconsole_health_status" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["namespace"] == "bookinfo" && labels["name"] == "reviews" && labels["kind"] == "app" {
				got, found = m.GetGauge().GetValue(), true
			}
		}
	}
	require.True(t, found)
	assert.Equal(t, float64(health.Degraded.Priority()), got)
}
