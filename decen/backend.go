package decen

import (
	"code.hybscloud.com/lpel"
	"golang.org/x/sync/errgroup"
)

type backend struct {
	rt      *lpel.Runtime
	workers []*worker
	eg      *errgroup.Group
}

// current points at the backend instance behind the single running
// Runtime, letting package placement reach Migrate without package lpel
// having to expose its internal Backend value. Matches the same
// singleton assumption package lpel itself makes (see its var rt
// *Runtime).
var current *backend

func (b *backend) Init(rt *lpel.Runtime, cfg lpel.Config) error {
	b.rt = rt
	b.workers = make([]*worker, cfg.NumWorkers)
	for i := range b.workers {
		b.workers[i] = newWorker(i, rt)
	}
	current = b
	return nil
}

// MigrateTask moves t to worker target. A no-op if the decen backend
// isn't the one running, or target is out of range. Exported for package
// placement's migration policies.
func MigrateTask(t *lpel.Task, target int) {
	if current != nil {
		current.Migrate(t, target)
	}
}

// NumWorkers returns the number of workers the running decen backend
// manages, or 0 if it isn't running.
func NumWorkers() int {
	if current == nil {
		return 0
	}
	return current.NumWorkers()
}

// WorkerLoads returns each worker's current assigned-task count, indexed
// by worker id, or nil if decen isn't the running backend. Exported for
// package placement's out-of-band scheduler, which samples load
// periodically rather than only at task-yield time.
func WorkerLoads() []int {
	if current == nil {
		return nil
	}
	loads := make([]int, len(current.workers))
	for i, w := range current.workers {
		loads[i] = int(w.assignedLoad())
	}
	return loads
}

func (b *backend) Start() error {
	b.eg = &errgroup.Group{}
	for _, w := range b.workers {
		w := w
		b.eg.Go(func() error {
			w.run()
			return nil
		})
	}
	return nil
}

func (b *backend) Stop() {
	for _, w := range b.workers {
		w.mb.Send(lpel.Msg{Type: lpel.MsgTerminate})
	}
}

func (b *backend) Wait() error {
	if b.eg == nil {
		return nil
	}
	for _, w := range b.workers {
		w.mb.Close()
	}
	return b.eg.Wait()
}

func (b *backend) NumWorkers() int { return len(b.workers) }

func (b *backend) Spawn(t *lpel.Task, worker int) {
	target := worker
	if target < 0 || target >= len(b.workers) {
		target = b.leastLoaded()
	}
	b.workers[target].mb.Send(lpel.Msg{Type: lpel.MsgAssign, Task: t})
}

// Wake re-admits t. A wake delivered by a peer
// running on the same worker is a direct make-ready into that worker's
// own ready queue -- no mailbox round trip -- while a peer on a
// different worker (or no worker yet) must cross over by message. The
// calling goroutine *is* the task that is currently occupying the target
// worker's dispatch loop when the two ids match (a worker runs exactly
// one task at a time and is blocked in RunTask for the duration), so
// touching that worker's queue here is safe without its own lock.
func (b *backend) Wake(t *lpel.Task) {
	id := t.WorkerID()
	if id < 0 || id >= len(b.workers) {
		id = b.leastLoaded()
	}
	if caller := lpel.TaskSelfOrNull(); caller != nil && caller.WorkerID() == id {
		// safe to mutate state here: the caller is the task occupying
		// this worker's dispatch slot, so the worker's own reschedule of
		// t already ran (it saw t blocked) and can't be racing us
		lpel.SetTaskState(t, lpel.TaskReady)
		b.workers[id].q.push(t, laneWoken)
		return
	}
	// cross-worker: state stays Blocked until the owning worker handles
	// the message. Setting Ready from here would race the owner's
	// post-run reschedule -- it could read Ready, push the task as if it
	// had yielded, and then push it again for this message.
	b.workers[id].mb.Send(lpel.Msg{Type: lpel.MsgWakeup, Task: t})
}

// Migrate moves t from its current worker to target, used by package
// placement's WAIT-PROP policy. The task itself must be the one calling
// this (from TaskYield's migrateCheck hook), since reassigning worker
// ownership of a running task from any other goroutine would race with
// the owning worker's own bookkeeping.
func (b *backend) Migrate(t *lpel.Task, target int) {
	origin := t.WorkerID()
	if target < 0 || target >= len(b.workers) || target == origin {
		return
	}
	lpel.SetWorkerID(t, target)
	if origin >= 0 && origin < len(b.workers) {
		b.workers[origin].assigned.Add(-1)
	}
	b.workers[target].mb.Send(lpel.Msg{Type: lpel.MsgTaskMigrate, Task: t})
}

func (b *backend) leastLoaded() int {
	best := 0
	bestLoad := b.workers[0].assignedLoad()
	for i, w := range b.workers[1:] {
		if l := w.assignedLoad(); l < bestLoad {
			bestLoad = l
			best = i + 1
		}
	}
	return best
}
