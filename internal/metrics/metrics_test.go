package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("tablestore", reg)
	require.NoError(t, err)

	m.AddWritten("t", 3)
	m.AddRead("t", 2)
	m.AddDeleted("t", 1)
	m.IncBatches("t")
	m.SetRowSizeEstimate("t", 128)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsWritten.WithLabelValues("t")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsRead.WithLabelValues("t")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsDeleted.WithLabelValues("t")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesYielded.WithLabelValues("t")))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.RowSizeEstimate.WithLabelValues("t")))

	_, err = New("tablestore", reg)
	assert.Error(t, err, "duplicate registration")
}

func TestObserveDurations(t *testing.T) {
	m, err := New("ts", nil)
	require.NoError(t, err)

	m.ObserveOperation("write", time.Now(), nil)
	m.ObserveOperation("write", time.Now(), errors.New("boom"))
	m.ObserveStatement("insert", time.Millisecond)
	m.IncStatementErrors("insert")
	m.IncStatementErrors("insert")

	assert.Equal(t, 2, testutil.CollectAndCount(m.OpDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StmtDuration))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StmtErrors.WithLabelValues("insert")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddWritten("t", 1)
		m.AddRead("t", 1)
		m.AddDeleted("t", 1)
		m.IncBatches("t")
		m.SetRowSizeEstimate("t", 1)
		m.ObserveOperation("x", time.Now(), nil)
		m.ObserveStatement("x", 0)
		m.IncStatementErrors("x")
	})
}
