package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	opList     = "list"
	opAdd      = "add"
	opDelete   = "delete"
	opStatus   = "status"
	opPriority = "priority"
)

// Metrics holds the store's collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	tasks      prometheus.Gauge
}

// NewMetrics creates the store collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksync_store_operations_total",
				Help: "Total number of task store operations",
			},
			[]string{"op", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasksync_store_operation_duration_seconds",
				Help:    "Duration of remote calls made by the task store",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		tasks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tasksync_store_tasks",
				Help: "Number of tasks held by the task store",
			},
		),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(op, status).Inc()
}

func (m *Metrics) setTasks(n int) {
	m.tasks.Set(float64(n))
}
