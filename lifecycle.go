// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"runtime"
	"sync"

	"go.uber.org/automaxprocs/maxprocs"

	"code.hybscloud.com/lpel/lpelmon"
)

// Runtime is one instance of the scheduler: a backend, its monitoring
// table, and the bookkeeping Init/Start/Stop/Cleanup share. The public
// API (Init/Start/Stop/Cleanup/TaskCreate/...) operates on a single
// package-level Runtime, matching the original library's process-wide
// globals (g_wrappers, the backend's worker array); Go doesn't need a
// singleton to implement this, but the original's call sequence
// (Init, Start, Stop, Cleanup) is part of the contract callers expect.
// Stop does not clear the running flag, so a Runtime is started once;
// starting again takes Cleanup and a fresh Init.
type Runtime struct {
	cfg        Config
	backend    Backend
	mon        lpelmon.Table
	monEnabled bool

	// migrateCheck, when set by package placement, is consulted by
	// TaskYield/TaskCheckMigrate to decide whether the calling task
	// should move to a different worker before it runs again.
	migrateCheck func(*Task)

	mu      sync.Mutex
	running bool

	// wrappers joins the dedicated single-task goroutines created for
	// MapWrapper tasks (see wrapper.go); their mailboxes are closed at
	// Cleanup so a wrapper stuck waiting on a wake that will never come
	// doesn't hang the join.
	wrapWG  sync.WaitGroup
	wrapMBs []*Mailbox
}

// Monitor returns the runtime's monitoring hook table. Backend packages
// use it to fire worker-level hooks; it is never nil, but any or all of
// its fields may be.
func (r *Runtime) Monitor() *lpelmon.Table { return &r.mon }

func (r *Runtime) trackWrapper(w *wrapper) {
	r.mu.Lock()
	r.wrapMBs = append(r.wrapMBs, w.mb)
	r.mu.Unlock()
	r.wrapWG.Add(1)
}

func (r *Runtime) wrapperDone() { r.wrapWG.Done() }

// SetMigrateCheck installs the placement policy's migration hook. Called
// by package placement when a DECEN migration policy is configured; a nil
// hook (the default) makes TaskCheckMigrate a no-op.
func SetMigrateCheck(fn func(*Task)) {
	r := current()
	if r == nil {
		return
	}
	r.mu.Lock()
	r.migrateCheck = fn
	r.mu.Unlock()
}

var (
	rtMu sync.Mutex
	rt   *Runtime
)

// Init prepares a Runtime from cfg without starting any goroutines. It
// may be called again after Cleanup. automaxprocs GOMAXPROCS tuning runs
// here (maxprocs.Set below), matching the original's lpel_hwloc
// probing happening once at LpelInit time.
func Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	backend, ok := lookupBackend(cfg.Backend)
	if !ok {
		return newStatusError("Init", StatusInvalid, ErrUnknownBackend)
	}

	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	if err != nil {
		return newStatusError("Init", StatusFail, err)
	}
	_ = undo // intentionally never called: GOMAXPROCS should stay tuned for the process lifetime

	r := &Runtime{cfg: cfg, backend: backend}
	if cfg.Mon != nil {
		r.mon = *cfg.Mon
		r.monEnabled = true
	}

	rtMu.Lock()
	rt = r
	rtMu.Unlock()

	return backend.Init(r, cfg)
}

// Start launches the backend's worker goroutines (and master, for HRC).
// Returns ErrAlreadyRunning if called twice without an intervening Stop
// and Cleanup.
func Start() error {
	r := current()
	if r == nil {
		return ErrNotRunning
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	if err := r.backend.Start(); err != nil {
		return err
	}
	r.running = true
	return nil
}

// Stop requests every worker to terminate cooperatively: once its ready
// queue is empty and no tasks remain assigned to it, a worker returns
// rather than blocking for more work. Stop does not wait for that to
// happen; call Cleanup for that.
func Stop() error {
	r := current()
	if r == nil {
		return ErrNotRunning
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	r.backend.Stop()
	return nil
}

// Cleanup waits for all worker and master goroutines to exit and
// releases the Runtime. Runtime-bound queries such as WorkerCount report
// no runtime until the next Init; GetNumCores does not depend on one.
func Cleanup() error {
	r := current()
	if r == nil {
		return ErrNotRunning
	}
	err := r.backend.Wait()

	r.mu.Lock()
	mbs := r.wrapMBs
	r.wrapMBs = nil
	r.mu.Unlock()
	for _, mb := range mbs {
		mb.Close()
	}
	r.wrapWG.Wait()

	rtMu.Lock()
	rt = nil
	rtMu.Unlock()

	return err
}

func current() *Runtime {
	rtMu.Lock()
	defer rtMu.Unlock()
	return rt
}

// GetNumCores reports the number of logical CPUs visible to the process,
// the Go-native replacement for LpelGetNumCores's hwloc topology walk
// (there is no portable userspace topology query in the standard library
// or this stack's dependencies; runtime.NumCPU is what automaxprocs
// itself is built on).
func GetNumCores() int { return runtime.NumCPU() }

// WorkerCount returns the number of workers the running backend manages.
func WorkerCount() int {
	r := current()
	if r == nil {
		return 0
	}
	return r.backend.NumWorkers()
}
