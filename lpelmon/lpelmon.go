// Package lpelmon defines the monitoring hook surface that the lpel
// runtime calls into at worker, task and stream lifecycle points, and
// ships a Prometheus-backed reference implementation.
//
// This mirrors the original library's lpel_monitoring_cb_t: a struct of
// optional callbacks rather than a fixed interface, so a caller can
// implement only the hooks it cares about. Handles (TaskHandle,
// WorkerHandle, StreamHandle) are opaque to package lpel; this package
// decides what they carry.
package lpelmon

import (
	"time"

	"github.com/google/uuid"
)

// TaskHandle is the monitoring-side identity of a task. Package lpel holds
// one of these per task (when monitoring is enabled) and passes it back
// into the Table's task hooks; it never inspects the fields itself.
type TaskHandle struct {
	ID      uint64
	TraceID uuid.UUID
	Name    string
}

// WorkerHandle is the monitoring-side identity of a worker goroutine.
type WorkerHandle struct {
	ID int
}

// StreamHandle is the monitoring-side identity of a stream descriptor.
type StreamHandle struct {
	StreamID uint64
	TaskID   uint64
	Mode     byte // 'r' or 'w'
}

// Table is a struct of optional hooks, mirroring lpel_monitoring_cb_t. Any
// field left nil is simply not called; the runtime checks for nil before
// every invocation so a partially populated Table (or the zero Table) is
// always safe to pass to [lpel.Config].
type Table struct {
	WorkerCreate        func(id int) *WorkerHandle
	WorkerCreateWrapper func(*TaskHandle) *WorkerHandle
	WorkerDestroy       func(*WorkerHandle)
	WorkerWaitStart     func(*WorkerHandle)
	WorkerWaitStop      func(*WorkerHandle)

	TaskDestroy   func(*TaskHandle)
	TaskAssign    func(*TaskHandle, *WorkerHandle)
	TaskStart     func(*TaskHandle)
	TaskStop      func(*TaskHandle, byte) // byte is the lpel.TaskState code
	TaskReady     func(*TaskHandle)
	TaskBlockTime func(*TaskHandle, time.Duration) // how long a block lasted, fired at wakeup

	GetTaskWaitProp    func(*TaskHandle) float64
	WorkerMostWaitProp func() int
	GetGlobalWaitProp  func() float64
	GetWorkerWaitProp  func(*TaskHandle) float64

	StreamOpen        func(*TaskHandle, uint64, byte) *StreamHandle
	StreamClose       func(*StreamHandle)
	StreamReplace     func(*StreamHandle, uint64)
	StreamReadPrepare func(*StreamHandle)
	StreamReadFinish  func(*StreamHandle, any)
	StreamWritePrepare func(*StreamHandle, any)
	StreamWriteFinish func(*StreamHandle)
	StreamBlockOn     func(*StreamHandle)
	StreamWakeup      func(*StreamHandle)
}
