package hrc

import (
	"code.hybscloud.com/lpel"
	"golang.org/x/sync/errgroup"
)

// options holds HRC-specific knobs that don't belong on the
// backend-agnostic lpel.Config: which of the sixteen priority functions
// to use, the location-based hook for index 15, and the negative-demand
// limit that parks over-producing source tasks. Set them with Configure
// before calling lpel.Init.
var options = struct {
	priorityIndex  int
	location       *LocationPriority
	negDemandLimit float64
}{priorityIndex: 14, negDemandLimit: -1}

// Configure selects the priority function (1-16, see priority.go) the
// HRC backend's master will use, the hook consulted when index is 15,
// and the negative-demand limit: once a source task's output backlog
// exceeds negDemandLimit, the master stops popping it until the backlog
// drops. negDemandLimit < 0 disables
// the check. Call before lpel.Init; has no effect afterward.
func Configure(priorityIndex int, location *LocationPriority, negDemandLimit float64) {
	options.priorityIndex = priorityIndex
	options.location = location
	options.negDemandLimit = negDemandLimit
}

type backend struct {
	master  *master
	workers []*worker
	eg      *errgroup.Group
}

func (b *backend) Init(rt *lpel.Runtime, cfg lpel.Config) error {
	b.master = newMaster(rt, options.priorityIndex, options.location, options.negDemandLimit)
	b.workers = make([]*worker, cfg.NumWorkers)
	for i := range b.workers {
		b.workers[i] = newWorker(i, rt, b.master)
	}
	b.master.workers = b.workers
	return nil
}

func (b *backend) Start() error {
	b.eg = &errgroup.Group{}
	b.eg.Go(func() error {
		b.master.run()
		return nil
	})
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
	b.master.mb.Send(lpel.Msg{Type: lpel.MsgTerminate})
}

func (b *backend) Wait() error {
	if b.eg == nil {
		return nil
	}
	err := b.eg.Wait()
	b.master.mb.Close()
	for _, w := range b.workers {
		w.mb.Close()
	}
	return err
}

func (b *backend) NumWorkers() int { return len(b.workers) }

// Spawn admits a freshly started task; the explicit worker hint is
// ignored, since the master assigns every task to a worker per
// dispatch.
func (b *backend) Spawn(t *lpel.Task, worker int) {
	b.master.mb.Send(lpel.Msg{Type: lpel.MsgAssign, Task: t})
}

// Wake signals a blocked task. Deliberately no state transition here:
// the waker may be outrunning the worker that is still unwinding the
// task's block, so the Blocked-to-Ready step is left to the master,
// which coalesces this message with the worker's Return (see
// master.onWakeup/onReturn).
func (b *backend) Wake(t *lpel.Task) {
	b.master.mb.Send(lpel.Msg{Type: lpel.MsgWakeup, Task: t})
}
