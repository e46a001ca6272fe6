package hrc

import (
	"code.hybscloud.com/lpel"
	"code.hybscloud.com/lpel/lpelmon"
)

// worker repeatedly requests a task from the master, runs it to its next
// yield/block/exit, and reports the outcome back -- it never accumulates
// any scheduling state of its own, unlike a decen worker.
type worker struct {
	id  int
	rt  *lpel.Runtime
	mb  *lpel.Mailbox
	m   *master
	mon *lpelmon.WorkerHandle

	done chan struct{}
}

func newWorker(id int, rt *lpel.Runtime, m *master) *worker {
	return &worker{id: id, rt: rt, mb: lpel.NewMailbox(), m: m, done: make(chan struct{})}
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
		w.m.mb.Send(lpel.Msg{Type: lpel.MsgRequest, FromWorker: w.id})
		if mon != nil && mon.WorkerWaitStart != nil && w.mon != nil {
			mon.WorkerWaitStart(w.mon)
		}
		msg := w.mb.Recv()
		if mon != nil && mon.WorkerWaitStop != nil && w.mon != nil {
			mon.WorkerWaitStop(w.mon)
		}
		if msg.Type == lpel.MsgTerminate {
			if mon != nil && mon.WorkerDestroy != nil && w.mon != nil {
				mon.WorkerDestroy(w.mon)
			}
			return
		}

		t := msg.Task
		if mon != nil && mon.TaskAssign != nil && t.Monitor() != nil {
			mon.TaskAssign(t.Monitor(), w.mon)
		}
		lpel.RunTask(t)

		// every outcome goes back to the master, whatever state the task
		// landed in: only the master touches the heap, the neighbour
		// re-prioritization, and the Returned/wakedup coalescing a
		// blocked task needs.
		w.m.mb.Send(lpel.Msg{Type: lpel.MsgReturn, Task: t})
	}
}
