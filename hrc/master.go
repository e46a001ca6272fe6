package hrc

import "code.hybscloud.com/lpel"

// master is the single goroutine that owns the priority heap and hands
// tasks out to idle workers on request. There is exactly one per
// backend, mirroring the original HRC design's dedicated master thread.
//
// The master is also the only goroutine that moves a task through the
// HRC-only InQueue and Returned states, which is what makes the
// wakeup/return coalescing below race-free: a waker never mutates task
// state (see hrc backend.Wake), it only sends a message, and the master
// serializes everything.
type master struct {
	rt      *lpel.Runtime
	mb      *lpel.Mailbox
	pq      *priorityQueue
	workers []*worker

	pendingRequests []int

	// wakedup records a wakeup that arrived before the blocked task's
	// own worker handed it back: the eventual Return is then treated as
	// ready instead of parking the task in Returned.
	wakedup map[*lpel.Task]bool

	terminating bool
	terminated  int
	done        chan struct{}
}

func newMaster(rt *lpel.Runtime, priorityIndex int, loc *LocationPriority, negDemandLimit float64) *master {
	return &master{
		rt:      rt,
		mb:      lpel.NewMailbox(),
		pq:      newPriorityQueue(priorityIndex, loc, negDemandLimit),
		wakedup: make(map[*lpel.Task]bool),
		done:    make(chan struct{}),
	}
}

// run is the master loop. The master itself carries no monitor handle
// (there is no task-level event to report from here that the worker
// side doesn't already report); it only moves tasks.
func (m *master) run() {
	defer close(m.done)
	lpel.PinWorker()

	for {
		msg := m.mb.Recv()
		switch msg.Type {
		case lpel.MsgRequest:
			m.pendingRequests = append(m.pendingRequests, msg.FromWorker)
		case lpel.MsgAssign:
			// a freshly started task entering the scheduler
			m.enqueue(msg.Task)
		case lpel.MsgReturn:
			m.onReturn(msg.Task)
		case lpel.MsgWakeup:
			m.onWakeup(msg.Task)
		case lpel.MsgTerminate:
			m.terminating = true
		}

		m.dispatch()

		if m.terminating && m.terminated == len(m.workers) {
			return
		}
	}
}

// onReturn handles a worker handing back the task it just ran, whatever
// the task ran into: exit, a voluntary yield, or a block. A blocked task
// whose wakeup already arrived is requeued immediately; otherwise it
// parks in Returned until the wakeup shows up.
func (m *master) onReturn(t *lpel.Task) {
	switch st := t.State(); {
	case st == lpel.TaskZombie:
		lpel.DestroyTask(t)
		delete(m.wakedup, t)
	case st == lpel.TaskReady:
		m.enqueue(t)
	default: // TaskBlocked or TaskMutex
		if m.wakedup[t] {
			delete(m.wakedup, t)
			m.enqueue(t)
		} else {
			lpel.SetTaskState(t, lpel.TaskReturned)
			m.pq.reprioritizeNeighbours(t)
		}
	}
}

// onWakeup handles a peer signalling a blocked task. Only a task the
// worker has already handed back (Returned) can be requeued; a wakeup
// that outruns the Return is remembered in wakedup instead.
func (m *master) onWakeup(t *lpel.Task) {
	if t.State() == lpel.TaskReturned {
		m.enqueue(t)
	} else {
		m.wakedup[t] = true
	}
}

func (m *master) enqueue(t *lpel.Task) {
	lpel.SetTaskState(t, lpel.TaskInQueue)
	m.pq.push(t)
}

func (m *master) dispatch() {
	for len(m.pendingRequests) > 0 && m.pq.available() {
		wid := m.pendingRequests[0]
		m.pendingRequests = m.pendingRequests[1:]
		t := m.pq.pop()
		lpel.SetTaskState(t, lpel.TaskReady)
		lpel.SetWorkerID(t, wid)
		m.workers[wid].mb.Send(lpel.Msg{Type: lpel.MsgAssign, Task: t})
	}
	if m.terminating {
		// nothing dispatchable is left for these workers; release them.
		// A worker sends exactly one Request after each task and exits
		// on Terminate, so every worker is reached and counted exactly
		// once.
		for len(m.pendingRequests) > 0 {
			wid := m.pendingRequests[0]
			m.pendingRequests = m.pendingRequests[1:]
			m.workers[wid].mb.Send(lpel.Msg{Type: lpel.MsgTerminate})
			m.terminated++
		}
	}
}
