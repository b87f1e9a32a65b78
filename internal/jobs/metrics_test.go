package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("sheet:import").End(nil))
	err := errors.New("boom")
	assert.Equal(t, err, m.Track("sheet:import").End(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sheet:import", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sheet:import", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("sheet:import")))
}

func TestObserveImport(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveImport("partial", 8, 2, time.Second)
	m.ObserveImport("failed", 0, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues("failed")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.importRows.WithLabelValues("imported")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.importRows.WithLabelValues("failed")))
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	m.ObserveImport("success", 1, 0, time.Second)
	assert.NoError(t, m.Track("x").End(nil))
}
