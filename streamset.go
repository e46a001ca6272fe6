// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

// StreamSet is a circular, singly linked list of stream descriptors
// threaded through each descriptor's next field, mirroring the original's
// lpel_streamset_t (itself just a lpel_stream_desc_t*). A task polls a
// StreamSet to wait on whichever of several input streams produces
// first, rather than blocking on one specific stream.
type StreamSet struct {
	head  *StreamDescriptor
	count int
}

// NewStreamSet returns an empty stream set.
func NewStreamSet() *StreamSet { return &StreamSet{} }

// Put adds sd to the set. sd must not already belong to another set.
func (ss *StreamSet) Put(sd *StreamDescriptor) {
	if ss.head == nil {
		sd.next = sd
		ss.head = sd
	} else {
		sd.next = ss.head.next
		ss.head.next = sd
	}
	ss.count++
}

// Remove drops sd from the set, reporting whether it was found.
func (ss *StreamSet) Remove(sd *StreamDescriptor) bool {
	if ss.head == nil {
		return false
	}
	if ss.head == sd {
		if sd.next == sd {
			ss.head = nil
		} else {
			// find predecessor to close the ring
			p := ss.head
			for p.next != ss.head {
				p = p.next
			}
			ss.head = sd.next
			p.next = ss.head
		}
		sd.next = nil
		ss.count--
		return true
	}
	p := ss.head
	for p.next != ss.head {
		if p.next == sd {
			p.next = sd.next
			sd.next = nil
			ss.count--
			return true
		}
		p = p.next
	}
	return false
}

// IsEmpty reports whether the set has no members.
func (ss *StreamSet) IsEmpty() bool { return ss.head == nil }

// Len returns the number of descriptors in the set.
func (ss *StreamSet) Len() int { return ss.count }

// Iter walks a StreamSet's members. The walk is bounded by the member
// count snapshotted at Reset, and the iterator advances past each
// descriptor before handing it out, so visiting code may Remove the
// descriptor it was just given (for example to prune a closed stream
// mid-scan) without derailing the traversal.
type Iter struct {
	set       *StreamSet
	cur       *StreamDescriptor
	remaining int
}

// NewIter returns an iterator positioned at the start of ss. Passing nil
// creates an unattached iterator; call Reset before use.
func NewIter(ss *StreamSet) *Iter {
	it := &Iter{}
	if ss != nil {
		it.Reset(ss)
	}
	return it
}

// Iterator returns a fresh iterator over ss.
func (ss *StreamSet) Iterator() *Iter { return NewIter(ss) }

// Reset re-points the iterator at the start of ss, discarding any
// progress.
func (it *Iter) Reset(ss *StreamSet) {
	it.set = ss
	it.cur = ss.head
	it.remaining = ss.count
}

// HasNext reports whether there are more descriptors to visit.
func (it *Iter) HasNext() bool { return it.remaining > 0 }

// Next returns the descriptor the iterator is on and advances past it.
func (it *Iter) Next() *StreamDescriptor {
	sd := it.cur
	it.cur = sd.next
	it.remaining--
	return sd
}

// Remove drops sd, which Next just returned, from the underlying set.
func (it *Iter) Remove(sd *StreamDescriptor) {
	if it.cur == sd {
		// removing before any Next call; step past it first
		it.cur = sd.next
	}
	it.set.Remove(sd)
}

// Append adds sd to the underlying set. It is not visited in the current
// pass.
func (it *Iter) Append(sd *StreamDescriptor) { it.set.Put(sd) }

// Poll blocks until one of the descriptors in set has an item ready to
// read, then returns it. set must not be empty. The fast path is a
// non-blocking scan; if nothing is ready, the calling task commits to
// blocking (state first, then token, then each stream's is_poll flag
// under its producer lock) so that whichever producer writes first wins
// the race to wake it -- see signalReader in stream.go for the writer's
// half of the arbitration.
//
// The second, arming pass doubles as a re-scan: if an item arrived while
// the flags were going up, the task tries to reclaim its own poll token.
// Winning the Swap means no writer committed to waking it, so the
// context switch is skipped; losing means a wakeup is already on its way
// and the task must block to consume it, or the scheduler would see the
// same task runnable twice.
//
// Whichever descriptor is returned, the set's hook is rotated to the one
// after it so a later Poll call starts past it instead of always
// scanning from the same head -- the fairness guarantee against one
// stream monopolizing the set.
func Poll(t *Task, set *StreamSet) *StreamDescriptor {
	assertf(!set.IsEmpty(), "poll on an empty stream set")

	if sd := scanReady(set); sd != nil {
		rotate(set, sd)
		return sd
	}

	t.wakeupSD = nil
	t.setState(TaskBlocked)
	t.pollToken.Store(1)

	found := false
	it := set.Iterator()
	for it.HasNext() {
		s := it.Next().stream
		s.prodLock.Lock()
		s.isPoll = true
		if s.nSem.LoadAcquire() > 0 {
			found = true
		}
		s.prodLock.Unlock()
	}

	if found && t.pollToken.Swap(0) == 1 {
		t.setState(TaskRunning)
	} else {
		yieldToWorker(t)
	}

	armPoll(set, false)

	sd := scanReady(set)
	assertf(sd != nil, "poll woke with no ready stream")
	rotate(set, sd)
	return sd
}

// rotate advances set's hook to the descriptor just after sd, the one
// that produced the item Poll is about to return, so the next Poll call
// starts its scan there instead of from sd again.
func rotate(set *StreamSet, sd *StreamDescriptor) {
	if sd.next != nil {
		set.head = sd.next
	}
}

func scanReady(set *StreamSet) *StreamDescriptor {
	it := set.Iterator()
	for it.HasNext() {
		sd := it.Next()
		if sd.stream.nSem.LoadAcquire() > 0 {
			return sd
		}
	}
	return nil
}

func armPoll(set *StreamSet, on bool) {
	it := set.Iterator()
	for it.HasNext() {
		s := it.Next().stream
		s.prodLock.Lock()
		s.isPoll = on
		s.prodLock.Unlock()
	}
}
