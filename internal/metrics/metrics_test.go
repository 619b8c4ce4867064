package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"cloudsync/internal/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.SyncEvent("created", metrics.DispositionReceived)
	m.SyncEvent("created", metrics.DispositionReceived)
	m.SyncEvent("removed", metrics.DispositionInvalid)
	m.SyncSchedule(true)
	m.SyncSchedule(false)
	m.MultipartOp("finish", errors.New("boom"))
	m.ReapResult(3, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncEvents.WithLabelValues("created", metrics.DispositionReceived)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncEvents.WithLabelValues("removed", metrics.DispositionInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncSchedules.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MultipartOps.WithLabelValues("finish", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Reaped.WithLabelValues("removed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.SyncEvent("created", metrics.DispositionError)
		m.SyncRun(nil)
		m.SyncSchedule(true)
		m.MultipartOp("initiate", nil)
		m.ReapResult(1, 0)
	})
}
