// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"sync/atomic"

	"github.com/google/uuid"

	"code.hybscloud.com/lpel/lpelmon"
)

var taskIDs atomic.Uint64

// Stack budgets, in bytes. Goroutine stacks grow dynamically, so these
// only bound what StackSize reports back, but the defaulting and
// minimum-clamp behaviour is part of the task-creation contract.
const (
	DefaultStackSize = 8 << 10
	MinStackSize     = 4 << 10
)

// TaskCreate allocates a task bound to worker (MapOthers lets the backend
// choose, MapWrapper gives the task its own dedicated wrapper goroutine)
// that will run fn(inarg) once started with TaskStart. The task does
// nothing until TaskStart is called. stackSize <= 0 uses
// DefaultStackSize; anything below MinStackSize is raised to it.
func TaskCreate(worker int, fn TaskFunc, inarg any, stackSize int, flags Flag) (*Task, error) {
	r := current()
	if r == nil {
		return nil, ErrNotRunning
	}
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	} else if stackSize < MinStackSize {
		stackSize = MinStackSize
	}
	t := &Task{
		id:        taskIDs.Add(1),
		state:     TaskCreated,
		worker:    worker,
		flags:     flags,
		fn:        fn,
		inarg:     inarg,
		stackSize: stackSize,
		traceID:   uuid.New(),
		recLimit:  -1,
		rt:        r,
	}
	if r.monEnabled {
		t.mon = &lpelmon.TaskHandle{ID: t.id, TraceID: t.traceID}
	}
	return t, nil
}

// TaskMonitor attaches a monitor handle to t, the Go equivalent of
// LpelTaskMonitor's manual attachment step (the original has no
// creation-time monitoring callback by design).
func TaskMonitor(t *Task, mh *lpelmon.TaskHandle) { t.mon = mh }

// TaskStart makes a created task runnable and hands it to the backend
// for scheduling -- or, for a task created with MapWrapper, to a
// dedicated wrapper goroutine of its own (see wrapper.go).
func TaskStart(t *Task) {
	assertf(t.State() == TaskCreated, "TaskStart: task %d is not in created state", t.id)
	startTask(t)
	t.setState(TaskReady)
	if t.rt.mon.TaskStart != nil && t.mon != nil {
		t.rt.mon.TaskStart(t.mon)
	}
	if t.worker == MapWrapper {
		startWrapper(t)
		return
	}
	t.rt.backend.Spawn(t, t.worker)
}

// TaskSelf returns the task running on the calling goroutine. It panics
// if called from outside a task's own goroutine; use TaskSelfOrNull when
// that's a possibility.
func TaskSelf() *Task {
	t := currentTask()
	if t == nil {
		panic("lpel: TaskSelf called outside a task context")
	}
	return t
}

// TaskSelfOrNull returns the task running on the calling goroutine, or
// nil if the caller isn't a task goroutine.
func TaskSelfOrNull() *Task { return currentTask() }

// taskExitSignal is recovered by the trampoline in context.go to unwind a
// task's stack from anywhere below TaskExit's call site, the same
// non-local behaviour as the original's TaskExit, which never returns to
// its caller.
type taskExitSignal struct{ outarg any }

// TaskExit terminates the calling task immediately, regardless of call
// depth, making outarg available as the task's result. Must be called
// from within a task.
func TaskExit(outarg any) {
	TaskSelf() // panics if misused, matching the precondition
	panic(taskExitSignal{outarg: outarg})
}

// TaskYield voluntarily gives up the worker running the calling task,
// without blocking: the task is immediately ready again and the worker
// loop (see package decen / package hrc) decides where it runs next.
func TaskYield() {
	t := TaskSelf()
	t.setState(TaskReady)
	if t.rt.migrateCheck != nil {
		t.rt.migrateCheck(t)
	}
	yieldToWorker(t)
}

// TaskCheckMigrate asks the placement policy (if one is configured;
// DECEN only, see package placement) whether the calling task should move
// to a different worker, and if so performs the migration. A no-op under
// HRC, where the master already assigns every task to a worker per
// invocation. Exposed separately from TaskYield for callers (originally
// snet-rts) that want to check without giving up the timeslice.
func TaskCheckMigrate() {
	t := TaskSelf()
	if t.rt.migrateCheck != nil {
		t.rt.migrateCheck(t)
	}
}

// TaskGetWorkerId returns the id of the worker currently responsible for
// t.
func TaskGetWorkerId(t *Task) int { return t.WorkerID() }

// RunTask hands control to t, which must be in the Ready state, and
// blocks until t yields, blocks or exits. This is the worker-loop half of
// the machine-context switch; it is exported only so backend packages
// (decen, hrc) can drive it, since they cannot see unexported package
// internals.
func RunTask(t *Task) {
	assertf(t.State() == TaskReady, "RunTask: task %d is not ready", t.id)
	switchTo(t)
}

// SetWorkerID records which worker is now responsible for t. Backend
// packages call this when assigning or migrating a task.
func SetWorkerID(t *Task, worker int) { t.setWorkerID(worker) }

// SetTaskState records a scheduler-driven state transition on t. Only
// backend packages call this: the transitions a task performs on itself
// (Running, Blocked, Zombie) happen inside this package, but the
// scheduler-side ones -- marking a woken task Ready, or HRC's InQueue
// and Returned bookkeeping states -- belong to whichever backend owns
// the task at that instant.
func SetTaskState(t *Task, s TaskState) {
	t.setState(s)
	if s == TaskReady && t.rt != nil && t.rt.mon.TaskReady != nil && t.mon != nil {
		t.rt.mon.TaskReady(t.mon)
	}
}

// TaskSetPriority sets t's scheduling priority. Under DECEN this selects
// which ready lane the task is dispatched into (see decen/queue.go's
// clampLane); HRC tasks are prioritized by the configured PriorityFunc
// instead and ignore this value. Safe to call before or after TaskStart.
func TaskSetPriority(t *Task, prio int) { t.setPriority(prio) }

// TaskSetRecLimit sets the maximum number of stream reads t may perform
// before it is forced to yield its worker, a cadence control so a task
// that never blocks on its own can't starve the rest of its worker's
// ready queue. n < 0 disables the limit (the default). Takes effect on
// t's next Read call.
func TaskSetRecLimit(t *Task, n int) { t.setRecLimit(n) }

// DestroyTask releases a task a backend has observed in the Zombie
// state, firing the monitor's TaskDestroy hook.
func DestroyTask(t *Task) {
	assertf(t.State() == TaskZombie, "DestroyTask: task %d is not a zombie", t.id)
	if t.rt != nil && t.rt.mon.TaskDestroy != nil && t.mon != nil {
		t.rt.mon.TaskDestroy(t.mon)
	}
}

// Outarg returns the value a zombie task's function returned (or that
// TaskExit was called with).
func (t *Task) Outarg() any { return t.outarg }
