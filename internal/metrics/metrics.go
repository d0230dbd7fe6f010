// Package metrics exposes Prometheus collectors for the storage engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	tableLabel  = "table"
	opLabel     = "operation"
	statusLabel = "status"
)

// Metrics groups the engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RowsWritten     *prometheus.CounterVec
	RowsRead        *prometheus.CounterVec
	RowsDeleted     *prometheus.CounterVec
	BatchesYielded  *prometheus.CounterVec
	OpDuration      *prometheus.HistogramVec
	StmtDuration    *prometheus.HistogramVec
	StmtErrors      *prometheus.CounterVec
	RowSizeEstimate *prometheus.GaugeVec
}

// New creates the collectors under namespace and registers them with reg.
// A nil reg skips registration.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows inserted by write operations",
		}, []string{tableLabel}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows decoded by read scans",
		}, []string{tableLabel}),
		RowsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_deleted_total",
			Help:      "Rows removed by delete operations",
		}, []string{tableLabel}),
		BatchesYielded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_yielded_total",
			Help:      "Batches produced by read scans",
		}, []string{tableLabel}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{opLabel, statusLabel}),
		StmtDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_duration_seconds",
			Help:      "Latency of SQL statements issued to the store",
			Buckets:   prometheus.DefBuckets,
		}, []string{opLabel}),
		StmtErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_errors_total",
			Help:      "SQL statements the store rejected or failed",
		}, []string{opLabel}),
		RowSizeEstimate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "row_size_estimate_bytes",
			Help:      "Row size estimate of the most recent scan",
		}, []string{tableLabel}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsWritten,
		m.RowsRead,
		m.RowsDeleted,
		m.BatchesYielded,
		m.OpDuration,
		m.StmtDuration,
		m.StmtErrors,
		m.RowSizeEstimate,
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OpDuration.WithLabelValues(op, status(err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveStatement(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.StmtDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncStatementErrors(op string) {
	if m == nil {
		return
	}
	m.StmtErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) AddWritten(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsWritten.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) AddRead(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsRead.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) AddDeleted(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsDeleted.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) IncBatches(table string) {
	if m == nil {
		return
	}
	m.BatchesYielded.WithLabelValues(table).Inc()
}

func (m *Metrics) SetRowSizeEstimate(table string, est int64) {
	if m == nil {
		return
	}
	m.RowSizeEstimate.WithLabelValues(table).Set(float64(est))
}
