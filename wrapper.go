// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import "code.hybscloud.com/lpel/lpelmon"

// wrapper runs exactly one task on a goroutine of its own, outside any
// backend's worker pool. It exists for "others" work such as blocking
// I/O tasks that would otherwise stall a shared worker: the task still
// uses the ordinary stream blocking protocol, but its wakeups route to
// the wrapper's private mailbox instead of a backend, and the wrapper
// terminates itself the moment its task exits.
type wrapper struct {
	mb  *Mailbox
	mon *lpelmon.WorkerHandle
}

// startWrapper launches a wrapper goroutine for t. Called from TaskStart
// when the task was created with MapWrapper; t's goroutine is already
// parked waiting for its first activation.
func startWrapper(t *Task) {
	w := &wrapper{mb: NewMailbox()}
	t.wrap = w
	r := t.rt

	if r != nil {
		if r.mon.WorkerCreateWrapper != nil && t.mon != nil {
			w.mon = r.mon.WorkerCreateWrapper(t.mon)
		}
		r.trackWrapper(w)
	}

	go func() {
		if r != nil {
			defer r.wrapperDone()
		}
		PinWorker()
		for {
			RunTask(t)
			switch st := t.State(); {
			case st == TaskZombie:
				DestroyTask(t)
				if r != nil && r.mon.WorkerDestroy != nil && w.mon != nil {
					r.mon.WorkerDestroy(w.mon)
				}
				return
			case st == TaskReady:
				// voluntary yield; there is nothing else to run here
			default:
				// blocked: park until the peer's wake arrives
				if r != nil && r.mon.WorkerWaitStart != nil && w.mon != nil {
					r.mon.WorkerWaitStart(w.mon)
				}
				msg := w.mb.Recv()
				if r != nil && r.mon.WorkerWaitStop != nil && w.mon != nil {
					r.mon.WorkerWaitStop(w.mon)
				}
				if msg.Type != MsgWakeup {
					// synthetic terminate from a closed mailbox during
					// cleanup; abandon the still-blocked task rather
					// than running it
					return
				}
				// Blocked-to-Ready happens here, on the wrapper, never
				// on the waker's goroutine (same rule as a decen
				// cross-worker wake)
				SetTaskState(t, TaskReady)
			}
		}
	}()
}
