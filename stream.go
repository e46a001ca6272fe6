// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/lpel/lpelmon"
)

// Mode is the direction a stream was opened in.
type Mode byte

const (
	ModeRead  Mode = 'r'
	ModeWrite Mode = 'w'
)

var streamIDs atomix.Uint64

// Stream is a single-producer/single-consumer bounded channel of
// arbitrary values, the data-flow edge tasks communicate over. Its ring
// buffer is a Lamport-style single-producer/single-consumer ring (head
// and tail padded onto separate cache lines; neither side caches the
// other's index), written here for any instead of a
// type parameter because a task's stream set can mix streams of
// different payload types (see streamset.go) the way the original's
// void* items do, and because Read/Write also need to fold in the
// blocking semaphore protocol below, which a bare Queue[T] has no room
// for.
//
// Occupancy is tracked twice, deliberately: head/tail index the ring
// buffer itself, while nSem/eSem are independent signed counting
// semaphores whose sign encodes whether a peer is parked waiting for
// this stream. The two serve different purposes and merging them would
// lose the "negative means someone is blocked" signal read/write rely on.
type Stream struct {
	id uint64

	buf  []any
	mask uint64

	// unbounded switches the ring buffer for a growable queue guarded
	// by ubMu, the HRC buffer variant: eSem plays no part, writes never
	// block, and back-pressure is the priority function's job. ubMu
	// only serializes the writer's append against the reader's pop
	// (and the occasional grow); the blocking protocol stays on nSem.
	unbounded bool
	ubMu      sync.Mutex
	ubuf      []any

	pad0 [64]byte

	head atomix.Uint64 // next slot to consume

	pad1 [64 - 8]byte

	tail atomix.Uint64 // next slot to produce

	pad2 [64 - 8]byte

	nSem atomix.Int64 // items available; negative = a reader is blocked
	eSem atomix.Int64 // free slots; negative = a writer is blocked

	prodLock sync.Mutex
	isPoll   bool

	prodSD *StreamDescriptor
	consSD *StreamDescriptor

	// openRefs counts descriptors opened on this stream that haven't
	// been closed yet (at most two: one reader, one writer). StreamClose
	// only releases buf once this reaches zero, so the side that closes
	// first can't yank the buffer out from under a peer that's still
	// reading or writing it.
	openRefs int

	userData any
	isEntry  bool
	isExit   bool

	mon *lpelmon.StreamHandle
}

// DefaultStreamCapacity is the buffer size NewStream uses when the host
// passes capacity <= 0.
const DefaultStreamCapacity = 16

// NewStream creates a stream with the given capacity, rounded up to the
// next power of two so ring indices can be masked instead of modded.
// capacity <= 0 uses DefaultStreamCapacity.
func NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultStreamCapacity
	}
	n := roundToPow2(uint64(capacity))
	s := &Stream{
		id:   streamIDs.AddAcqRel(1),
		buf:  make([]any, n),
		mask: n - 1,
	}
	s.nSem.StoreRelaxed(0)
	s.eSem.StoreRelaxed(int64(n))
	return s
}

// NewUnboundedStream creates a stream with no write-side bound: Write
// always succeeds immediately and only the reader ever blocks. This is
// the buffer variant the HRC backend expects -- it throttles producers
// through priority rather than back-pressure, so a bounded buffer would
// only distort its scheduling signal.
func NewUnboundedStream() *Stream {
	s := &Stream{
		id:        streamIDs.AddAcqRel(1),
		unbounded: true,
	}
	s.nSem.StoreRelaxed(0)
	return s
}

func roundToPow2(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// ID returns the stream's runtime-unique identifier.
func (s *Stream) ID() uint64 { return s.id }

// Pending returns the number of items currently available to read,
// never negative (a negative semaphore value means a reader is parked,
// which reads as zero pending items to a caller like an HRC priority
// function that just wants "how much work is waiting").
func (s *Stream) Pending() int {
	if v := s.nSem.LoadAcquire(); v > 0 {
		return int(v)
	}
	return 0
}

// FreeSlots returns the number of empty slots currently available to
// write into, never negative. An unbounded stream reports 0: it has no
// slot budget to spend down, and nothing meaningful to report.
func (s *Stream) FreeSlots() int {
	if v := s.eSem.LoadAcquire(); v > 0 {
		return int(v)
	}
	return 0
}

// Writer returns the task that currently holds the stream's write
// descriptor, or nil if it has none open. Used by the HRC priority queue
// to walk a task's neighbours when re-evaluating priorities.
func (s *Stream) Writer() *Task {
	s.prodLock.Lock()
	defer s.prodLock.Unlock()
	if s.prodSD == nil {
		return nil
	}
	return s.prodSD.task
}

// Reader returns the task that currently holds the stream's read
// descriptor, or nil if it has none open.
func (s *Stream) Reader() *Task {
	s.prodLock.Lock()
	defer s.prodLock.Unlock()
	if s.consSD == nil {
		return nil
	}
	return s.consSD.task
}

// SetEntry marks s as a graph entry stream: one whose producer lives
// outside the task graph (an input port). The HRC priority computation
// skips entry streams so external arrival bursts don't skew a task's
// scheduling priority.
func (s *Stream) SetEntry() { s.prodLock.Lock(); s.isEntry = true; s.prodLock.Unlock() }

// SetExit marks s as a graph exit stream, the output-port counterpart of
// SetEntry.
func (s *Stream) SetExit() { s.prodLock.Lock(); s.isExit = true; s.prodLock.Unlock() }

// IsEntry reports whether SetEntry was called on s.
func (s *Stream) IsEntry() bool {
	s.prodLock.Lock()
	defer s.prodLock.Unlock()
	return s.isEntry
}

// IsExit reports whether SetExit was called on s.
func (s *Stream) IsExit() bool {
	s.prodLock.Lock()
	defer s.prodLock.Unlock()
	return s.isExit
}

// SetUserData attaches an arbitrary value to the stream.
func (s *Stream) SetUserData(v any) { s.prodLock.Lock(); s.userData = v; s.prodLock.Unlock() }

// UserData returns the value set by SetUserData, or nil.
func (s *Stream) UserData() any {
	s.prodLock.Lock()
	defer s.prodLock.Unlock()
	return s.userData
}

// StreamDescriptor is what a task actually holds after opening a stream:
// the stream itself, the owning task, the direction it was opened in,
// and a next pointer used to thread the descriptor into a StreamSet.
type StreamDescriptor struct {
	task   *Task
	stream *Stream
	mode   Mode
	next   *StreamDescriptor
	mon    *lpelmon.StreamHandle
}

// Task returns the task that opened this descriptor.
func (sd *StreamDescriptor) Task() *Task { return sd.task }

// Stream returns the underlying stream.
func (sd *StreamDescriptor) Stream() *Stream { return sd.stream }

// Mode returns the direction the stream was opened in.
func (sd *StreamDescriptor) Mode() Mode { return sd.mode }

// StreamOpen opens s for t in the given mode and returns a descriptor. A
// stream may have at most one open reader and one open writer
// descriptor at a time, the SPSC contract the ring buffer relies on.
// Opening a second in the same direction panics in builds with the
// lpeldebug tag; in other builds the new descriptor replaces the old.
func StreamOpen(t *Task, s *Stream, mode Mode) *StreamDescriptor {
	sd := &StreamDescriptor{task: t, stream: s, mode: mode}
	s.prodLock.Lock()
	switch mode {
	case ModeRead:
		assertf(s.consSD == nil, "stream %d already has a reader", s.id)
		s.consSD = sd
	case ModeWrite:
		assertf(s.prodSD == nil, "stream %d already has a writer", s.id)
		s.prodSD = sd
	}
	s.openRefs++
	s.prodLock.Unlock()

	if t.rt != nil && t.rt.mon.StreamOpen != nil {
		sd.mon = t.rt.mon.StreamOpen(t.mon, s.id, byte(mode))
	}
	t.addStream(sd)
	return sd
}

// StreamClose closes sd. If destroy is true and sd is the last open
// descriptor on the stream (the other side already closed, or never
// opened one), the stream's buffer is released; if a peer still has its
// descriptor open, the buffer is left alone so the peer's next
// Read/Write/TryWrite doesn't index into a nil slice, and release is
// deferred to whichever close call turns out to be the last one.
func StreamClose(sd *StreamDescriptor, destroy bool) {
	sd.task.removeStream(sd)
	s := sd.stream
	s.prodLock.Lock()
	switch sd.mode {
	case ModeRead:
		if s.consSD == sd {
			s.consSD = nil
		}
	case ModeWrite:
		if s.prodSD == sd {
			s.prodSD = nil
		}
	}
	s.openRefs--
	lastClose := s.openRefs <= 0
	s.prodLock.Unlock()
	if sd.task.rt != nil && sd.task.rt.mon.StreamClose != nil && sd.mon != nil {
		sd.task.rt.mon.StreamClose(sd.mon)
	}
	if destroy && lastClose {
		s.prodLock.Lock()
		s.buf = nil
		s.prodLock.Unlock()
		s.ubMu.Lock()
		s.ubuf = nil
		s.ubMu.Unlock()
	}
}

// StreamReplace rewires sd to point at a different underlying stream,
// used by dynamic dataflow graphs that splice a new producer in without
// the consumer closing and reopening its descriptor.
func StreamReplace(sd *StreamDescriptor, snew *Stream) {
	old := sd.stream
	sd.stream = snew
	snew.prodLock.Lock()
	switch sd.mode {
	case ModeRead:
		snew.consSD = sd
	case ModeWrite:
		snew.prodSD = sd
	}
	snew.prodLock.Unlock()
	if sd.task.rt != nil && sd.task.rt.mon.StreamReplace != nil && sd.mon != nil {
		sd.task.rt.mon.StreamReplace(sd.mon, snew.id)
	}
	_ = old
}

// wakeTask hands a blocked peer to whoever schedules it -- its wrapper's
// mailbox for a MapWrapper task, the backend otherwise -- so some worker
// resumes it. The Blocked-to-Ready transition belongs to the receiving
// side: decen performs it in Wake for a same-worker wake and in the
// owning worker's MsgWakeup handler otherwise, HRC's master performs it when the
// wakeup message coalesces with the worker's Return (a waker mutating
// state the master also owns would race the Returned bookkeeping).
// Called with no locks held.
func wakeTask(t *Task) {
	if t.rt != nil && t.rt.mon.StreamWakeup != nil && t.wakeupSD != nil && t.wakeupSD.mon != nil {
		t.rt.mon.StreamWakeup(t.wakeupSD.mon)
	}
	t.wakeupSD = nil
	if t.wrap != nil {
		// state stays Blocked; the wrapper marks the task ready when it
		// consumes the message, for the same reason decen's cross-worker
		// wake does -- the wrapper may still be unwinding the block
		t.wrap.mb.Send(Msg{Type: MsgWakeup, Task: t})
		return
	}
	if t.rt != nil && t.rt.backend != nil {
		t.rt.backend.Wake(t)
	}
}

// blockCurrent parks the calling task until woken by a peer, recording
// sd as the descriptor it's waiting on (matching the original's
// "wakeup_sd" field, read by wakeTask to fire the StreamWakeup hook).
func blockCurrent(t *Task, sd *StreamDescriptor) {
	start := time.Now()
	t.wakeupSD = sd
	t.setState(TaskBlocked)
	if t.rt != nil && t.rt.mon.StreamBlockOn != nil && sd.mon != nil {
		t.rt.mon.StreamBlockOn(sd.mon)
	}
	yieldToWorker(t)
	recordWait(t, time.Since(start))
}

// Read blocks until an item is available on sd and returns it.
//
// nSem/eSem are generalized counting semaphores implemented as a signed
// atomic add-and-test (atomix.AddAcqRel returns the value *after* the
// add, the same convention internal/lfq's queues use for
// ticket arithmetic). Decrementing past zero is the "no resource
// available" case and its sign is the wakeup signal the peer side reads,
// a value of exactly zero after an increment means the
// peer had committed to blocking (it drove the semaphore to -1 on its own
// decrement) and must be woken now.
func Read(sd *StreamDescriptor) any {
	s := sd.stream
	t := sd.task

	if t.rt != nil && t.rt.mon.StreamReadPrepare != nil && sd.mon != nil {
		t.rt.mon.StreamReadPrepare(sd.mon)
	}

	if s.nSem.AddAcqRel(-1) < 0 {
		blockCurrent(t, sd)
	}

	var item any
	if s.unbounded {
		s.ubMu.Lock()
		item = s.ubuf[0]
		s.ubuf[0] = nil
		s.ubuf = s.ubuf[1:]
		s.ubMu.Unlock()
	} else {
		head := s.head.LoadRelaxed()
		item = s.buf[head&s.mask]
		s.buf[head&s.mask] = nil
		s.head.StoreRelease(head + 1)

		if s.eSem.AddAcqRel(1) == 0 {
			if w := s.prodSD; w != nil {
				wakeTask(w.task)
			}
		}
	}
	if t.rt != nil && t.rt.mon.StreamReadFinish != nil && sd.mon != nil {
		t.rt.mon.StreamReadFinish(sd.mon, item)
	}
	checkRecLimit(t)
	return item
}

// checkRecLimit enforces t's rec-limit cadence control (see
// TaskSetRecLimit): once t has read recLimit items since the last forced
// yield, it gives up its worker the same way TaskYield does, so a task
// that never blocks on its own streams still lets its worker's ready
// queue make progress. A disabled limit (negative) is the common case
// and costs one comparison.
func checkRecLimit(t *Task) {
	if t.recLimit < 0 {
		return
	}
	t.recCount++
	if t.recCount < t.recLimit {
		return
	}
	t.recCount = 0
	t.setState(TaskReady)
	if t.rt.migrateCheck != nil {
		t.rt.migrateCheck(t)
	}
	yieldToWorker(t)
}

// Peek returns the next item without consuming it, or nil if the stream
// is empty. Non-blocking.
func Peek(sd *StreamDescriptor) any {
	s := sd.stream
	if s.nSem.LoadAcquire() <= 0 {
		return nil
	}
	if s.unbounded {
		s.ubMu.Lock()
		defer s.ubMu.Unlock()
		return s.ubuf[0]
	}
	head := s.head.LoadAcquire()
	return s.buf[head&s.mask]
}

// put appends item to the buffer. The nSem accounting around it is the
// caller's job; only the stream's single writer ever calls this.
func (s *Stream) put(item any) {
	if s.unbounded {
		s.ubMu.Lock()
		s.ubuf = append(s.ubuf, item)
		s.ubMu.Unlock()
		return
	}
	tail := s.tail.LoadRelaxed()
	s.buf[tail&s.mask] = item
	s.tail.StoreRelease(tail + 1)
}

// signalReader publishes one newly enqueued item on nSem and wakes
// whichever kind of parked reader the post-increment value reveals: 0
// means a reader committed to blocking in Read (it drove nSem to -1
// itself) and is woken unconditionally; 1 means the stream just went
// empty-to-nonempty with nSem untouched by any reader, the one signal a
// multi-stream poll watches for, so only then is the is_poll/poll-token
// arbitration consulted -- the Swap makes exactly one writer across all
// polled streams the winner.
func (s *Stream) signalReader() {
	switch s.nSem.AddAcqRel(1) {
	case 0:
		if r := s.consSD; r != nil {
			wakeTask(r.task)
		}
	case 1:
		s.prodLock.Lock()
		if s.isPoll && s.consSD != nil {
			if s.consSD.task.pollToken.Swap(0) == 1 {
				wakeTask(s.consSD.task)
			}
		}
		s.prodLock.Unlock()
	}
}

// Write blocks until there is room for item on sd, then enqueues it.
//
// The post-increment value of nSem after enqueuing tells Write which of
// two distinct readers might need waking (see Read's doc comment for the
// semaphore convention): a result of 0 means a reader already committed
// to blocking via a direct Read call (nSem had been driven to -1) and
// must be woken unconditionally; a result of 1 means the stream just
// went from empty to non-empty with nSem untouched by anyone (Poll never
// decrements it), which is exactly the signal a multi-stream poll is
// watching for -- so only in that case is the is_poll/poll-token
// arbitration in signalReader consulted.
func Write(sd *StreamDescriptor, item any) {
	s := sd.stream
	t := sd.task

	if t.rt != nil && t.rt.mon.StreamWritePrepare != nil && sd.mon != nil {
		t.rt.mon.StreamWritePrepare(sd.mon, item)
	}

	if !s.unbounded && s.eSem.AddAcqRel(-1) < 0 {
		blockCurrent(t, sd)
	}

	s.put(item)
	s.signalReader()

	if t.rt != nil && t.rt.mon.StreamWriteFinish != nil && sd.mon != nil {
		t.rt.mon.StreamWriteFinish(sd.mon)
	}
}

// TryWrite enqueues item on sd if there is room, returning ErrWouldBlock
// if the buffer is full instead of blocking. Only the stream's single
// writer ever calls Write/TryWrite, so unlike a general-purpose MPMC
// queue there is no other producer to race against here: a plain
// decrement-then-check is enough, and on failure the decrement is undone.
func TryWrite(sd *StreamDescriptor, item any) error {
	s := sd.stream
	if !s.unbounded {
		if s.eSem.AddAcqRel(-1) < 0 {
			s.eSem.AddAcqRel(1)
			return ErrWouldBlock
		}
	}

	s.put(item)
	s.signalReader()
	return nil
}
