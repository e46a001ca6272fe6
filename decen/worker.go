package decen

import (
	"sync/atomic"

	"code.hybscloud.com/lpel"
	"code.hybscloud.com/lpel/lpelmon"
)

type worker struct {
	id  int
	rt  *lpel.Runtime
	mb  *lpel.Mailbox
	q   readyQueue
	mon *lpelmon.WorkerHandle

	assigned atomic.Int64 // tasks currently owned by this worker

	terminating bool
	done        chan struct{}
}

func newWorker(id int, rt *lpel.Runtime) *worker {
	return &worker{id: id, rt: rt, mb: lpel.NewMailbox(), done: make(chan struct{})}
}

func (w *worker) run() {
	defer close(w.done)
	lpel.PinWorker()

	var mon *lpelmon.Table
	if w.rt != nil {
		mon = w.rt.Monitor()
		if mon.WorkerCreate != nil {
			w.mon = mon.WorkerCreate(w.id)
		}
	}

	for {
		w.drainMail()

		// a worker only exits once it has been told to terminate AND no
		// task still belongs to it: a blocked task's wakeup must find
		// its owning worker alive, however late it arrives. A closed
		// mailbox overrides that -- the runtime is being torn down, and
		// a task whose wake never came is abandoned (ready tasks still
		// drain first).
		if w.terminating && w.q.empty() && (w.assigned.Load() == 0 || w.mb.IsClosed()) {
			if mon != nil && mon.WorkerDestroy != nil && w.mon != nil {
				mon.WorkerDestroy(w.mon)
			}
			return
		}

		t := w.q.pop()
		if t == nil {
			if mon != nil && mon.WorkerWaitStart != nil && w.mon != nil {
				mon.WorkerWaitStart(w.mon)
			}
			msg := w.mb.Recv()
			if mon != nil && mon.WorkerWaitStop != nil && w.mon != nil {
				mon.WorkerWaitStop(w.mon)
			}
			w.handle(msg)
			continue
		}

		lpel.RunTask(t)
		w.reschedule(t)
	}
}

func (w *worker) drainMail() {
	for {
		msg, ok := w.mb.TryRecv()
		if !ok {
			return
		}
		w.handle(msg)
	}
}

func (w *worker) handle(msg lpel.Msg) {
	switch msg.Type {
	case lpel.MsgAssign, lpel.MsgTaskMigrate:
		lpel.SetWorkerID(msg.Task, w.id)
		w.assigned.Add(1)
		if w.rt != nil {
			if mon := w.rt.Monitor(); mon.TaskAssign != nil && msg.Task.Monitor() != nil {
				mon.TaskAssign(msg.Task.Monitor(), w.mon)
			}
		}
		w.q.push(msg.Task, clampLane(msg.Task.Priority()))
	case lpel.MsgWakeup:
		// the Blocked-to-Ready transition happens here, on the owning
		// worker, never on the waker's goroutine (see backend.Wake)
		lpel.SetTaskState(msg.Task, lpel.TaskReady)
		w.q.push(msg.Task, laneWoken)
	case lpel.MsgTerminate:
		w.terminating = true
	}
}

func (w *worker) reschedule(t *lpel.Task) {
	switch t.State() {
	case lpel.TaskZombie:
		lpel.DestroyTask(t)
		w.assigned.Add(-1)
	case lpel.TaskReady:
		if t.WorkerID() == w.id {
			w.q.push(t, clampLane(t.Priority()))
		}
		// else: migrateCheck reassigned ownership mid-yield (see
		// backend.Migrate); the destination worker's MsgTaskMigrate
		// handler pushes it instead.
	default:
		// TaskBlocked or TaskMutex: the stream/mutex code that parked it
		// calls Wake once it's runnable again, which pushes it straight
		// back onto this queue (same-worker wake) or routes a MsgWakeup
		// to this worker's mailbox (cross-worker wake).
	}
}

// assignedLoad returns the number of tasks currently owned by this
// worker, used by the backend to place MapOthers tasks on the least
// loaded worker.
func (w *worker) assignedLoad() int64 { return w.assigned.Load() }
