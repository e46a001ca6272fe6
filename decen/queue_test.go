package decen

import (
	"testing"

	"code.hybscloud.com/lpel"
)

// TestReadyQueueLaneOrdering checks that the woken lane drains entirely
// before the normal lane, and that each lane itself stays FIFO.
func TestReadyQueueLaneOrdering(t *testing.T) {
	var q readyQueue
	if !q.empty() {
		t.Fatalf("new queue is not empty")
	}

	normalA := &lpel.Task{}
	normalB := &lpel.Task{}
	wokenA := &lpel.Task{}
	wokenB := &lpel.Task{}

	q.push(normalA, laneNormal)
	q.push(wokenA, laneWoken)
	q.push(normalB, laneNormal)
	q.push(wokenB, laneWoken)

	if q.len() != 4 {
		t.Fatalf("len() = %d, want 4", q.len())
	}

	want := []*lpel.Task{wokenA, wokenB, normalA, normalB}
	for i, w := range want {
		got := q.pop()
		if got != w {
			t.Fatalf("pop #%d = %p, want %p", i, got, w)
		}
	}
	if !q.empty() {
		t.Fatalf("queue should be empty after draining every push")
	}
	if q.pop() != nil {
		t.Fatalf("pop on empty queue returned non-nil")
	}
}
