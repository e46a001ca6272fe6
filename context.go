// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"sync"

	"code.hybscloud.com/lpel/internal/gid"
)

// taskContext is this package's machine context: the original library
// swaps CPU register state between a task's stack and a worker's stack
// with swapcontext/sigaltstack assembly (arch/mctx*.h). Go gives every
// goroutine its own growable stack already and forbids touching another
// goroutine's register state, so the switch is re-expressed as a
// synchronous rendezvous between two channels: resume hands control to
// the task, done hands it back to whatever called switchTo.
//
// Exactly one of {resume has a pending send, task is running, done has a
// pending send} is true at any time, so both channels stay unbuffered;
// there is never more than one outstanding handoff in either direction.
type taskContext struct {
	resume chan struct{}
	done   chan struct{}
}

func newTaskContext() *taskContext {
	return &taskContext{
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// taskRegistry maps the id of a task's own goroutine to the *Task running
// on it, so TaskSelf, TaskYield and TaskExit can recover "the calling
// task" without the caller threading a handle through. Populated by
// startTask's trampoline, cleared when the task goroutine returns.
var taskRegistry sync.Map // uint64 -> *Task

func registerCurrentTask(t *Task) { taskRegistry.Store(gid.Current(), t) }
func unregisterCurrentTask()      { taskRegistry.Delete(gid.Current()) }

// currentTask returns the Task running on the calling goroutine, or nil
// if the caller isn't a task goroutine.
func currentTask() *Task {
	v, ok := taskRegistry.Load(gid.Current())
	if !ok {
		return nil
	}
	return v.(*Task)
}

// startTask launches t's goroutine and parks it immediately waiting for
// the first switchTo. The goroutine is the task's entire lifetime: it
// runs t.fn exactly once, then marks the task a zombie and hands control
// back permanently.
func startTask(t *Task) {
	t.gctx = newTaskContext()
	go func() {
		registerCurrentTask(t)
		defer unregisterCurrentTask()

		<-t.gctx.resume // wait to be started

		func() {
			defer func() {
				if r := recover(); r != nil {
					sig, ok := r.(taskExitSignal)
					if !ok {
						panic(r) // not ours: let it crash the process, as an unrecovered goroutine panic always does
					}
					t.outarg = sig.outarg
				}
			}()
			t.outarg = t.fn(t.inarg)
		}()

		if t.userDataDtr != nil {
			t.userDataDtr(t, t.userData)
		}

		t.setState(TaskZombie)
		if t.mon != nil && t.rt != nil && t.rt.mon.TaskStop != nil {
			t.rt.mon.TaskStop(t.mon, byte(TaskZombie))
		}
		t.gctx.done <- struct{}{}
	}()
}

// switchTo hands control to t and blocks the calling goroutine (a worker
// loop) until t yields, blocks or exits. It is the worker-side half of
// the rendezvous; call it only when t.state == TaskReady.
func switchTo(t *Task) {
	t.setState(TaskRunning)
	t.gctx.resume <- struct{}{}
	<-t.gctx.done
}

// yieldToWorker is the task-side half of the rendezvous: it hands control
// back to whichever worker called switchTo, then blocks until that
// worker (or a different one, after a migration) calls switchTo again.
// Must be called from the task's own goroutine; panics otherwise via the
// nil dereference on gctx if misused from outside a task context, same
// failure shape as calling TaskYield with no current task.
func yieldToWorker(t *Task) {
	t.gctx.done <- struct{}{}
	<-t.gctx.resume
}
