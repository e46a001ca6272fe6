// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"sync"

	"code.hybscloud.com/lpel/internal/lfq"
)

// MsgType tags what a worker message carries, mirroring workermsg_t's
// union discriminant in the original.
type MsgType int

const (
	MsgWakeup MsgType = iota
	MsgRequest
	MsgAssign
	MsgTerminate
	MsgSpmdRequest
	MsgReturn
	MsgTaskMigrate
)

func (m MsgType) String() string {
	switch m {
	case MsgWakeup:
		return "wakeup"
	case MsgRequest:
		return "request"
	case MsgAssign:
		return "assign"
	case MsgTerminate:
		return "terminate"
	case MsgSpmdRequest:
		return "spmd_request"
	case MsgReturn:
		return "return"
	case MsgTaskMigrate:
		return "task_migrate"
	default:
		return "unknown"
	}
}

// Msg is one worker mailbox message. Only the fields relevant to Type are
// meaningful, the same union-by-convention the original's workermsg_t
// uses.
type Msg struct {
	Type       MsgType
	Task       *Task
	FromWorker int
}

// mailboxCapacity bounds a worker's backlog of control messages. The
// original caps mailbox depth at a fixed freelist size rather than
// growing unbounded; control traffic (wakeups, migrate, assign) never
// approaches this depth in practice.
const mailboxCapacity = 256

// Mailbox is a worker's inbox. The queue itself is the same FAA-based
// bounded ring internal/lfq.MPSC uses for any multi-producer/single-
// consumer workload; a mutex and condition variable sit around it purely
// to turn its non-blocking Enqueue/Dequeue into the blocking Send/Recv a
// worker's dispatch loop wants, since a worker has nothing better to do
// than sleep while its mailbox and ready queue are both empty.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	q      *lfq.MPSC[Msg]
	depth  int // messages currently queued, kept under mu alongside q
	closed bool
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	mb := &Mailbox{q: lfq.NewMPSC[Msg](mailboxCapacity)}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

// Send enqueues msg, blocking only in the (pathological) case the
// backlog is fully saturated, and wakes a blocked Recv.
func (mb *Mailbox) Send(msg Msg) {
	mb.mu.Lock()
	for mb.q.Enqueue(&msg) != nil {
		if mb.closed {
			// shutdown: the receiver is gone, nobody will drain the
			// backlog, and the message can be dropped
			mb.mu.Unlock()
			return
		}
		mb.cond.Wait()
	}
	mb.depth++
	mb.mu.Unlock()
	mb.cond.Broadcast()
}

// Recv blocks until a message is available and returns it.
func (mb *Mailbox) Recv() Msg {
	mb.mu.Lock()
	for {
		if msg, err := mb.q.Dequeue(); err == nil {
			mb.depth--
			mb.mu.Unlock()
			mb.cond.Broadcast() // room freed for a blocked Send
			return msg
		}
		if mb.closed {
			mb.mu.Unlock()
			return Msg{Type: MsgTerminate}
		}
		mb.cond.Wait()
	}
}

// TryRecv returns the next message without blocking, and false if the
// mailbox is empty.
func (mb *Mailbox) TryRecv() (Msg, bool) {
	mb.mu.Lock()
	msg, err := mb.q.Dequeue()
	if err != nil {
		mb.mu.Unlock()
		return Msg{}, false
	}
	mb.depth--
	mb.mu.Unlock()
	mb.cond.Broadcast()
	return msg, true
}

// HasMail reports whether the mailbox currently holds any messages,
// without consuming them. The decen worker loop drains with TryRecv
// instead and does not call this.
//
// lfq.MPSC deliberately has no length query of its own (an accurate
// count would need cross-core synchronization the ring is designed to
// avoid), so depth is tracked here under mu, alongside every Enqueue and
// Dequeue that mu already serializes.
func (mb *Mailbox) HasMail() bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.depth > 0
}

// IsClosed reports whether Close has been called. A Recv that returns
// MsgTerminate on a closed mailbox is synthetic: the owner is being torn
// down and should exit even if it still has bookkeeping outstanding.
func (mb *Mailbox) IsClosed() bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.closed
}

// Close wakes any goroutine blocked in Recv or Send, used during
// shutdown so a worker parked waiting for mail doesn't hang forever.
func (mb *Mailbox) Close() {
	mb.mu.Lock()
	mb.closed = true
	mb.mu.Unlock()
	mb.cond.Broadcast()
}
