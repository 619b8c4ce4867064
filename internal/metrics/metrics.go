// Package metrics defines the Prometheus metrics of the sync and multipart
// flows. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	SyncEvents    *prometheus.CounterVec // cloudsync_sync_events_total{kind,disposition}
	SyncRuns      *prometheus.CounterVec // cloudsync_sync_runs_total{result}
	SyncSchedules *prometheus.CounterVec // cloudsync_sync_schedule_total{result}

	MultipartOps *prometheus.CounterVec // cloudsync_multipart_operations_total{operation,result}
	Reaped       *prometheus.CounterVec // cloudsync_multipart_reaped_total{result}
}

// New registers the metrics with registry, or with the default Prometheus
// registry when nil.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	return &Metrics{
		SyncEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsync_sync_events_total",
			Help: "Sync events processed, by event kind and acknowledgement",
		}, []string{"kind", "disposition"}),

		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsync_sync_runs_total",
			Help: "Sync passes run by workers",
		}, []string{"result"}),

		SyncSchedules: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsync_sync_schedule_total",
			Help: "Sync scheduling attempts, enqueued or skipped at the job cap",
		}, []string{"result"}),

		MultipartOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsync_multipart_operations_total",
			Help: "Multipart upload operations",
		}, []string{"operation", "result"}),

		Reaped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudsync_multipart_reaped_total",
			Help: "Expired multipart sessions handled by the reaper",
		}, []string{"result"}),
	}
}

// Event dispositions.
const (
	DispositionReceived = "received"
	DispositionSkipped  = "skipped"
	DispositionInvalid  = "invalid"
	DispositionError    = "error"
)

func (m *Metrics) SyncEvent(kind, disposition string) {
	if m == nil {
		return
	}
	m.SyncEvents.WithLabelValues(kind, disposition).Inc()
}

func (m *Metrics) SyncRun(err error) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) SyncSchedule(enqueued bool) {
	if m == nil {
		return
	}
	label := "skipped"
	if enqueued {
		label = "enqueued"
	}
	m.SyncSchedules.WithLabelValues(label).Inc()
}

func (m *Metrics) MultipartOp(operation string, err error) {
	if m == nil {
		return
	}
	m.MultipartOps.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) ReapResult(removed, failed int) {
	if m == nil {
		return
	}
	m.Reaped.WithLabelValues("removed").Add(float64(removed))
	m.Reaped.WithLabelValues("failed").Add(float64(failed))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
