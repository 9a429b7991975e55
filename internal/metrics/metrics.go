package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/phrazzld/hashpool/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeOK labels tasks that settled successfully. Failed tasks are labelled
// with their error kind.
const OutcomeOK = "ok"

// PoolMetrics holds Prometheus collectors for a worker pool.
type PoolMetrics struct {
	TasksSubmitted *prometheus.CounterVec
	TasksSettled   *prometheus.CounterVec
	WorkerCrashes  *prometheus.CounterVec
	WorkersSpawned prometheus.Counter
	QueueDepth     prometheus.Gauge
	BusyWorkers    prometheus.Gauge
	QueueWait      *prometheus.HistogramVec
	TaskLatency    *prometheus.HistogramVec
}

// NewPoolMetrics creates the pool collectors and registers them with reg.
func NewPoolMetrics(reg prometheus.Registerer, namespace string) (*PoolMetrics, error) {
	const subsystem = "pool"

	m := &PoolMetrics{
		TasksSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks submitted to the pool",
		}, []string{"operation"}),
		TasksSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_settled_total",
			Help:      "Total number of tasks settled, by outcome",
		}, []string{"operation", "outcome"}),
		WorkerCrashes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "worker_crashes_total",
			Help:      "Total number of workers lost to crashes or task timeouts",
		}, []string{"error_kind"}),
		WorkersSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers_spawned_total",
			Help:      "Total number of workers started, including replacements",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Number of tasks waiting for a worker",
		}),
		BusyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "busy_workers",
			Help:      "Number of workers currently running a task",
		}),
		QueueWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_wait_seconds",
			Help:      "Time tasks spent queued before dispatch",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
		TaskLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_latency_seconds",
			Help:      "Time from submission to settlement",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	collectors := []prometheus.Collector{
		m.TasksSubmitted,
		m.TasksSettled,
		m.WorkerCrashes,
		m.WorkersSpawned,
		m.QueueDepth,
		m.BusyWorkers,
		m.QueueWait,
		m.TaskLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register pool metrics: %w", err)
		}
	}

	return m, nil
}

// HandleEvent implements events.EventHandler.
func (m *PoolMetrics) HandleEvent(_ context.Context, event *events.PoolEvent) error {
	switch event.Type {
	case events.TaskSubmitted:
		m.TasksSubmitted.WithLabelValues(event.Operation).Inc()
	case events.TaskDispatched:
		m.QueueWait.WithLabelValues(event.Operation).Observe(event.Elapsed.Seconds())
	case events.TaskSettled:
		outcome := OutcomeOK
		if event.Failed() {
			outcome = event.ErrorKind
		}
		m.TasksSettled.WithLabelValues(event.Operation, outcome).Inc()
		m.TaskLatency.WithLabelValues(event.Operation).Observe(event.Elapsed.Seconds())
	case events.WorkerSpawned:
		m.WorkersSpawned.Inc()
	case events.WorkerCrashed:
		m.WorkerCrashes.WithLabelValues(event.ErrorKind).Inc()
	case events.PoolShutdown:
	default:
		return fmt.Errorf("unexpected event type: %s", event.Type)
	}

	m.QueueDepth.Set(float64(event.QueueDepth))
	m.BusyWorkers.Set(float64(event.Busy))
	return nil
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
