// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BiSema is a binary semaphore, signalled by default. It mirrors the
// original's lpel_bisema_t: a cache-line-padded counter spun on rather
// than parked on an OS primitive, since the workers contending on it are
// themselves spinning between scheduling decisions rather than blocked in
// the kernel.
type BiSema struct {
	counter atomix.Int32
	_       [64 - 4]byte
}

// NewBiSema returns a signalled binary semaphore.
func NewBiSema() *BiSema {
	s := &BiSema{}
	s.counter.StoreRelease(1)
	return s
}

// Wait blocks until the semaphore is signalled, then consumes the
// signal. The wait is a bounded busy-spin: once a full millisecond of
// wall-clock time has gone by without the signal, a caller that is a
// task gives its worker back to the scheduler and spins on from
// wherever it next gets dispatched, so a long-held semaphore parks the
// task rather than pinning a whole worker.
func (s *BiSema) Wait() {
	w := spin.Wait{}
	last := time.Now()
	for {
		if s.counter.LoadAcquire() > 0 {
			if s.counter.AddAcqRel(-1) >= 0 {
				return
			}
			s.counter.AddAcqRel(1) // lost the race, undo and retry
		}
		w.Once()
		if time.Since(last) >= time.Millisecond {
			if t := currentTask(); t != nil {
				t.setState(TaskReady)
				yieldToWorker(t)
			}
			last = time.Now()
		}
	}
}

// Signal signals the semaphore, releasing one waiter if any is spinning.
func (s *BiSema) Signal() {
	s.counter.AddAcqRel(1)
}

// Mutex is a mutex a task can block on, surfacing as TaskMutex state
// rather than TaskBlocked while contested -- the original library treats
// mutex contention as a distinct task sub-state ('X') from stream
// blocking ('B') because a monitor needs to tell "waiting for data" apart
// from "waiting for a lock" in its traces.
type Mutex struct {
	mu      sync.Mutex
	holder  *Task
	waiters []*Task
}

// NewTaskMutex returns an unlocked Mutex.
func NewTaskMutex() *Mutex { return &Mutex{} }

// Lock acquires m for the calling task, blocking (in TaskMutex state) if
// another task holds it. Must be called from within a task.
func (m *Mutex) Lock() {
	t := TaskSelf()
	m.mu.Lock()
	if m.holder == nil {
		m.holder = t
		m.mu.Unlock()
		return
	}
	m.waiters = append(m.waiters, t)
	m.mu.Unlock()

	t.setState(TaskMutex)
	yieldToWorker(t)
}

// Unlock releases m, handing it directly to the next waiter (if any) and
// waking that task, rather than leaving the lock up for grabs.
func (m *Mutex) Unlock() {
	t := TaskSelf()
	m.mu.Lock()
	assertf(m.holder == t, "Mutex.Unlock: task %d does not hold the lock", t.id)
	if len(m.waiters) == 0 {
		m.holder = nil
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.holder = next
	m.mu.Unlock()

	wakeTask(next)
}
