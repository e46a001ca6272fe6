// Package spmd implements LpelTaskEnterSPMD as an external collaborator
// on top of package lpel's public API, rather than as scheduler-level
// machinery: a Group is a reusable barrier a fixed set of tasks
// rendezvous on before running a shared function together.
//
// Unlike a stream read/write block, waiting at a Group barrier does not
// hand the worker back to the scheduler -- the task's goroutine parks on
// a condition variable, so the worker running it is unavailable for
// other tasks until every group member arrives. That's an acceptable
// cost for a rarely-taken collective synchronization path, and keeping
// it out of the core blocking protocol (package lpel's stream.go) is
// what lets SPMD live as an optional, separately importable extension.
package spmd

import (
	"sync"

	"code.hybscloud.com/lpel"
)

// Group is a fixed-size, reusable SPMD barrier. Create one with
// NewGroup(n) and share it among exactly n tasks, each of which calls
// Enter once per collective phase.
type Group struct {
	n int

	mu    sync.Mutex
	cond  *sync.Cond
	count int
	gen   int
}

// NewGroup returns a barrier for n participating tasks.
func NewGroup(n int) *Group {
	g := &Group{n: n}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Enter blocks the calling task (which must be running, i.e. called from
// within a task) until all n group members have called Enter for this
// phase, then every member calls fn(arg) and Enter returns fn's result.
// The barrier resets automatically, so the same Group can be reused for
// the next collective phase.
//
// This mirrors LpelTaskEnterSPMD: the function argument is the "SPMD
// function" every participant executes together.
func Enter(g *Group, fn func(arg any) any, arg any) any {
	lpel.TaskSelf() // panics if misused, matching the precondition

	g.mu.Lock()
	myGen := g.gen
	g.count++
	if g.count == g.n {
		g.count = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for g.gen == myGen {
			g.cond.Wait()
		}
	}
	g.mu.Unlock()

	return fn(arg)
}
