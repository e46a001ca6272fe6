// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"fmt"
	"sync"
)

// Backend implements one of the two scheduling dialects (DECEN or HRC)
// over the Task/Stream primitives this package defines. Package lpel
// never imports lpel/decen or lpel/hrc directly; backends register
// themselves the way database/sql drivers do, so a program picks a
// dialect with a blank import and a Config field instead of a direct
// dependency.
type Backend interface {
	// Init prepares the backend to run cfg.NumWorkers workers (plus a
	// master goroutine, for backends that have one) against rt. It must
	// not start any goroutines yet; Start does that.
	Init(rt *Runtime, cfg Config) error

	// Start launches the backend's worker (and master) goroutines.
	Start() error

	// Stop requests every worker to terminate once its ready queue
	// drains, mirroring LpelStop's cooperative shutdown.
	Stop()

	// Wait blocks until every worker and master goroutine launched by
	// Start has returned.
	Wait() error

	// Spawn admits a newly started task into the backend's scheduling
	// structures, assigning it to a worker if worker is MapOthers.
	Spawn(t *Task, worker int)

	// Wake re-admits a task that was blocked and has just been
	// signalled, handing it back to whichever worker (or the master)
	// should run it next. The Blocked-to-Ready state transition is the
	// backend's responsibility: decen performs it inline for a wake on
	// the task's own worker and in the owning worker's MsgWakeup handler
	// otherwise; HRC defers it to the master so it can coalesce with the
	// worker's Return.
	Wake(t *Task)

	// NumWorkers returns the number of workers this backend is running,
	// not counting a master goroutine.
	NumWorkers() int
}

var (
	backendsMu sync.Mutex
	backends   = make(map[string]Backend)
)

// RegisterBackend makes a Backend available under name for use as
// Config.Backend. Intended to be called from an init() function in a
// backend package (lpel/decen, lpel/hrc), following the database/sql
// driver-registration pattern: importing the package for its side effect
// is what makes the name usable, keeping lpel free of a direct dependency
// on either scheduling dialect.
//
// RegisterBackend panics if name is already registered, same as
// sql.Register.
func RegisterBackend(name string, b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("lpel: RegisterBackend called twice for backend %q", name))
	}
	backends[name] = b
}

func lookupBackend(name string) (Backend, bool) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	b, ok := backends[name]
	return b, ok
}
