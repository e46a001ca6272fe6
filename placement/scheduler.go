package placement

import (
	"time"

	"code.hybscloud.com/lpel/decen"
)

// RunPlacementScheduler periodically samples every decen worker's load
// and folds it into p's history, independent of any task actually
// yielding. This is the out-of-band half of migration: Policy.Check
// (called inline from TaskYield) only ever sees the yielding task's own
// worker, so without this a worker that's gone idle wouldn't show up as
// a migration target until some other task happened to yield nearby.
//
// It never calls MigrateTask directly -- reassigning worker ownership of
// a task from any goroutine but the task's own would race the owning
// worker's bookkeeping (see backend.Migrate) -- it only feeds
// observations so the next inline Check makes a better decision.
//
// Returns when stop is closed.
func RunPlacementScheduler(p *WaitProp, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			loads := decen.WorkerLoads()
			if len(loads) == 0 {
				continue
			}
			max := loads[0]
			for _, l := range loads[1:] {
				if l > max {
					max = l
				}
			}
			p.mu.Lock()
			for w, l := range loads {
				factor := 0.0
				if max > 0 {
					factor = float64(l) / float64(max)
				}
				p.history.Add(w, factor)
			}
			p.mu.Unlock()
		}
	}
}
