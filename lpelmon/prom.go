package lpelmon

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMonitor is a reference [Table] backed by Prometheus collectors,
// held as fields, registered once by NewPromMonitor and updated from
// hook callbacks.
type PromMonitor struct {
	reg *prometheus.Registry

	// globalWaitProp mirrors the waitProp gauge as a readable value, so
	// the GetGlobalWaitProp query hook can answer with what the
	// placement policy last published (gauges are write-only).
	globalWaitProp atomic.Uint64 // float64 bits

	tasksStarted  prometheus.Counter
	tasksStopped  *prometheus.CounterVec
	tasksReady    prometheus.Counter
	workersActive prometheus.Gauge
	streamsOpen   prometheus.Gauge
	waitProp      prometheus.Gauge
	blockDuration prometheus.Histogram
}

// NewPromMonitor builds a PromMonitor and registers its collectors with
// reg. Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer wrapped in a *prometheus.Registry for the
// global one.
func NewPromMonitor(reg *prometheus.Registry) *PromMonitor {
	m := &PromMonitor{
		reg: reg,
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lpel_tasks_started_total",
			Help: "Total number of tasks started.",
		}),
		tasksStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpel_tasks_stopped_total",
			Help: "Total number of tasks that left the running state, by resulting state.",
		}, []string{"state"}),
		tasksReady: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lpel_tasks_ready_total",
			Help: "Total number of times a task became ready to run.",
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lpel_workers_active",
			Help: "Number of live worker goroutines, including wrappers.",
		}),
		streamsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lpel_streams_open",
			Help: "Number of currently open stream descriptors.",
		}),
		waitProp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lpel_global_wait_proportion",
			Help: "Global proportion of time tasks spend blocked, as tracked by the placement policy.",
		}),
		blockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lpel_task_block_duration_seconds",
			Help:    "Duration a task spent blocked on a stream before being woken.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.tasksStarted, m.tasksStopped, m.tasksReady,
		m.workersActive, m.streamsOpen, m.waitProp, m.blockDuration,
	)
	return m
}

// Table builds a [Table] wired to this monitor's collectors.
func (m *PromMonitor) Table() *Table {
	return &Table{
		WorkerCreate: func(id int) *WorkerHandle {
			m.workersActive.Inc()
			return &WorkerHandle{ID: id}
		},
		WorkerCreateWrapper: func(th *TaskHandle) *WorkerHandle {
			m.workersActive.Inc()
			return &WorkerHandle{ID: -1}
		},
		WorkerDestroy: func(*WorkerHandle) {
			m.workersActive.Dec()
		},
		TaskStart: func(*TaskHandle) {
			m.tasksStarted.Inc()
		},
		TaskStop: func(_ *TaskHandle, state byte) {
			m.tasksStopped.WithLabelValues(string(rune(state))).Inc()
		},
		TaskReady: func(*TaskHandle) {
			m.tasksReady.Inc()
		},
		TaskBlockTime: func(_ *TaskHandle, d time.Duration) {
			m.blockDuration.Observe(d.Seconds())
		},
		GetGlobalWaitProp: func() float64 {
			return math.Float64frombits(m.globalWaitProp.Load())
		},
		StreamOpen: func(th *TaskHandle, streamID uint64, mode byte) *StreamHandle {
			m.streamsOpen.Inc()
			return &StreamHandle{StreamID: streamID, TaskID: th.ID, Mode: mode}
		},
		StreamClose: func(*StreamHandle) {
			m.streamsOpen.Dec()
		},
	}
}

// SetGlobalWaitProp publishes the placement policy's current global wait
// proportion. Neither package placement nor package lpel calls it; the
// value reaches the gauge only when the host calls it.
func (m *PromMonitor) SetGlobalWaitProp(v float64) {
	m.waitProp.Set(v)
	m.globalWaitProp.Store(math.Float64bits(v))
}

// ObserveBlockDuration records how long a task spent blocked before being
// woken. Package lpel does not call it: block durations reach the
// histogram through the Table's TaskBlockTime hook.
func (m *PromMonitor) ObserveBlockDuration(d time.Duration) {
	m.blockDuration.Observe(d.Seconds())
}
