// Package placement implements task migration policies for the DECEN
// scheduling dialect (package decen). A policy decides, each time a task
// yields, whether that task should move to a different worker before it
// runs again; the check happens inline at yield time rather than from a
// dedicated placement-scheduler goroutine, so a migration decision never
// lags behind the task state it's based on by more than one scheduling
// round.
//
// Install registers a Policy as the runtime's migration hook:
//
//	placement.Install(placement.NewWaitProp(64))
//
// only meaningful when the running backend is decen; HRC assigns workers
// centrally and has no use for a migration policy.
package placement

import "code.hybscloud.com/lpel"

// Policy decides whether the calling task should migrate. Check runs on
// the task's own goroutine, at TaskYield/TaskCheckMigrate time.
type Policy interface {
	Check(t *lpel.Task)
}

// Install wires p in as the runtime's migration hook.
func Install(p Policy) {
	lpel.SetMigrateCheck(func(t *lpel.Task) { p.Check(t) })
}
