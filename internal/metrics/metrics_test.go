package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestIncrementsCounterAndObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest("nfs", "1", 0, 0.01)

	require.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("nfs", "1", "0")))
}

func TestGaugesReflectLatestValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetDRCSize(7)
	m.SetActiveConnections(3)

	require.Equal(t, float64(7), testutil.ToFloat64(m.DRCSize))
	require.Equal(t, float64(3), testutil.ToFloat64(m.ActiveConnections))
}

func TestByteCountersAccumulate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AddBytesRead(10)
	m.AddBytesRead(5)
	m.AddBytesWritten(2)

	require.Equal(t, float64(15), testutil.ToFloat64(m.BytesRead))
	require.Equal(t, float64(2), testutil.ToFloat64(m.BytesWritten))
}

func TestNullMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics = NullMetrics()

	require.NotPanics(t, func() {
		m.RecordRequest("nfs", "1", 0, 0.01)
		m.SetDRCSize(1)
		m.SetActiveConnections(1)
		m.AddBytesRead(1)
		m.AddBytesWritten(1)
	})
}
