package placement

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"code.hybscloud.com/lpel"
	"code.hybscloud.com/lpel/decen"
)

// WaitProp implements the WAIT-PROP migration heuristic: a task whose
// exponential moving average of time spent blocked (its "wait
// proportion", see lpel.Task.WaitProportion) exceeds Threshold is
// communication-bound, and is moved to whichever worker has recently
// reported the highest wait proportion among the tasks it ran -- a
// worker sitting idle waiting on its own tasks' streams is the one with
// slack to absorb another communication-bound task. Recent
// per-worker observations are kept in a bounded LRU rather than a map
// that grows with worker churn, since the historySize passed to
// NewWaitProp caps how many distinct
// workers' wait proportions this policy keeps an opinion about.
type WaitProp struct {
	mu        sync.Mutex
	history   *lru.Cache[int, float64]
	Threshold float64
}

// NewWaitProp returns a WaitProp policy with the given history size and
// a 0.1 default threshold (a task whose average block lasts 0.1 seconds
// or more is considered communication-bound).
func NewWaitProp(historySize int) *WaitProp {
	c, err := lru.New[int, float64](historySize)
	if err != nil {
		// historySize <= 0; fall back to a minimal cache rather than
		// propagating a constructor error through Install's call sites.
		c, _ = lru.New[int, float64](1)
	}
	return &WaitProp{history: c, Threshold: 0.1}
}

func (p *WaitProp) Check(t *lpel.Task) {
	w := t.WorkerID()
	wp := t.WaitProportion()

	p.mu.Lock()
	p.history.Add(w, wp)
	p.mu.Unlock()

	if wp < p.Threshold {
		return
	}

	target, ok := p.leastLoaded(w)
	if !ok {
		return
	}
	decen.MigrateTask(t, target)
}

// leastLoaded is named for the policy it implements (picking the
// migration target with the most room), not for the comparison it
// performs: the target is the worker with the highest recorded wait
// proportion, i.e. the one spending the most time blocked on its own
// tasks' streams rather than running them.
func (p *WaitProp) leastLoaded(exclude int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	bestWP := -math.MaxFloat64
	for _, w := range p.history.Keys() {
		if w == exclude {
			continue
		}
		wp, ok := p.history.Peek(w)
		if ok && wp > bestWP {
			bestWP = wp
			best = w
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// GlobalWaitProportion averages every worker currently in the history,
// the value lpelmon.PromMonitor.SetGlobalWaitProp and the original's
// get_global_wait_prop hook expose.
func (p *WaitProp) GlobalWaitProportion() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.history.Len() == 0 {
		return 0
	}
	var sum float64
	for _, w := range p.history.Keys() {
		if wp, ok := p.history.Peek(w); ok {
			sum += wp
		}
	}
	return sum / float64(p.history.Len())
}
