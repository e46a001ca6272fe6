// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel_test

import (
	"testing"
	"time"

	"code.hybscloud.com/lpel"
)

// TestStreamSetMembership checks Put/Remove/IsEmpty on the ring without
// needing a running task, since the set itself is plain data structure
// bookkeeping.
func TestStreamSetMembership(t *testing.T) {
	set := lpel.NewStreamSet()
	if !set.IsEmpty() {
		t.Fatalf("new set is not empty")
	}

	a := &lpel.StreamDescriptor{}
	b := &lpel.StreamDescriptor{}
	set.Put(a)
	set.Put(b)
	if set.IsEmpty() {
		t.Fatalf("set with two members reports empty")
	}

	if !set.Remove(a) {
		t.Fatalf("Remove(a) reported not found")
	}
	if set.Remove(a) {
		t.Fatalf("Remove(a) twice reported found")
	}
	if !set.Remove(b) {
		t.Fatalf("Remove(b) reported not found")
	}
	if !set.IsEmpty() {
		t.Fatalf("set should be empty after removing every member")
	}
}

// TestPollRotatesHookAfterSuccess checks the poll fairness
// requirement directly: once Poll picks a ready descriptor off the fast
// path, the set's hook must move past it, so a second call with both
// streams still ready picks the other one instead of the same stream
// winning every time.
func TestPollRotatesHookAfterSuccess(t *testing.T) {
	self := &lpel.Task{}

	first := lpel.NewStream(1)
	second := lpel.NewStream(1)

	sdFirst := lpel.StreamOpen(self, first, lpel.ModeRead)
	sdSecond := lpel.StreamOpen(self, second, lpel.ModeRead)

	set := lpel.NewStreamSet()
	set.Put(sdFirst)
	set.Put(sdSecond)

	writerFirst := lpel.StreamOpen(&lpel.Task{}, first, lpel.ModeWrite)
	writerSecond := lpel.StreamOpen(&lpel.Task{}, second, lpel.ModeWrite)
	if err := lpel.TryWrite(writerFirst, "a"); err != nil {
		t.Fatalf("TryWrite(first): %v", err)
	}
	if err := lpel.TryWrite(writerSecond, "b"); err != nil {
		t.Fatalf("TryWrite(second): %v", err)
	}

	got1 := lpel.Poll(self, set)
	if got1.Stream() != first {
		t.Fatalf("first Poll: got stream %v, want first", got1.Stream().ID())
	}

	got2 := lpel.Poll(self, set)
	if got2.Stream() != second {
		t.Fatalf("second Poll: got stream %v, want second -- hook did not rotate past the stream just picked", got2.Stream().ID())
	}
}

// TestPollSelectsWhicheverStreamIsReady starts a reader blocked on a Poll
// over two streams and a writer that only ever writes to the second one,
// checking Poll returns that stream rather than hanging or picking the
// empty one.
func TestPollSelectsWhicheverStreamIsReady(t *testing.T) {
	startTestRuntime(t, 2)

	first := lpel.NewStream(1)
	second := lpel.NewStream(1)
	done := make(chan any, 1)

	reader, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
		self := lpel.TaskSelf()
		sdFirst := lpel.StreamOpen(self, first, lpel.ModeRead)
		sdSecond := lpel.StreamOpen(self, second, lpel.ModeRead)

		set := lpel.NewStreamSet()
		set.Put(sdFirst)
		set.Put(sdSecond)

		ready := lpel.Poll(self, set)
		item := lpel.Read(ready)

		lpel.StreamClose(sdFirst, false)
		lpel.StreamClose(sdSecond, false)

		var result any
		if ready.Stream() != second {
			result = "poll picked the wrong stream"
		} else if item.(string) != "payload" {
			result = "poll picked the wrong item"
		}
		done <- result
		return nil
	}, nil, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate(reader): %v", err)
	}

	writer, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
		sd := lpel.StreamOpen(lpel.TaskSelf(), second, lpel.ModeWrite)
		lpel.Write(sd, "payload")
		lpel.StreamClose(sd, false)
		return nil
	}, nil, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate(writer): %v", err)
	}

	lpel.TaskStart(reader)
	lpel.TaskStart(writer)

	if result := <-done; result != nil {
		t.Fatalf("reader task failed: %v", result)
	}

	if err := lpel.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// TestIterRemoveMidTraversal drives the iterator's mid-scan removal
// contract: removing the descriptor Next just returned must not
// derail the rest of the walk.
func TestIterRemoveMidTraversal(t *testing.T) {
	set := lpel.NewStreamSet()
	a := &lpel.StreamDescriptor{}
	b := &lpel.StreamDescriptor{}
	c := &lpel.StreamDescriptor{}
	set.Put(a)
	set.Put(b)
	set.Put(c)
	if set.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", set.Len())
	}

	visited := 0
	it := set.Iterator()
	for it.HasNext() {
		sd := it.Next()
		visited++
		if sd == b {
			it.Remove(sd)
		}
	}
	if visited != 3 {
		t.Fatalf("visited %d descriptors, want 3 (removal must not cut the walk short)", visited)
	}
	if set.Len() != 2 {
		t.Fatalf("Len() after removal = %d, want 2", set.Len())
	}
	if set.Remove(b) {
		t.Fatalf("b still in the set after Iter.Remove")
	}
}

// TestPollRoutesManyStreams runs a keyed router in front of a polling
// consumer: items numbered 1..n are each written to their own stream,
// and every Poll must return a descriptor that actually has that item --
// never a stale pick, never a hang, with the poll-token arbitration
// deciding the winner whenever a write races the consumer's arming
// pass.
func TestPollRoutesManyStreams(t *testing.T) {
	startTestRuntime(t, 2)

	const n = 8
	streams := make([]*lpel.Stream, n)
	for i := range streams {
		streams[i] = lpel.NewStream(1)
	}

	done := make(chan map[int]bool, 1)

	consumer, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
		self := lpel.TaskSelf()
		set := lpel.NewStreamSet()
		for _, s := range streams {
			set.Put(lpel.StreamOpen(self, s, lpel.ModeRead))
		}

		seen := make(map[int]bool, n)
		for len(seen) < n {
			sd := lpel.Poll(self, set)
			v := lpel.Read(sd).(int)
			if seen[v] {
				break // duplicate: report what we have and fail below
			}
			seen[v] = true
		}

		it := set.Iterator()
		for it.HasNext() {
			sd := it.Next()
			it.Remove(sd)
			lpel.StreamClose(sd, false)
		}
		done <- seen
		return nil
	}, nil, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate(consumer): %v", err)
	}
	lpel.TaskStart(consumer)

	router, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
		self := lpel.TaskSelf()
		for i, s := range streams {
			wr := lpel.StreamOpen(self, s, lpel.ModeWrite)
			lpel.Write(wr, i+1)
			lpel.StreamClose(wr, false)
		}
		return nil
	}, nil, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate(router): %v", err)
	}
	lpel.TaskStart(router)

	select {
	case seen := <-done:
		if len(seen) != n {
			t.Fatalf("consumer collected %d distinct items, want %d: %v", len(seen), n, seen)
		}
		for i := 1; i <= n; i++ {
			if !seen[i] {
				t.Errorf("item %d never arrived through the poll", i)
			}
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("polling consumer never finished")
	}

	if err := lpel.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
