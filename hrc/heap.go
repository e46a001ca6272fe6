package hrc

import (
	"container/heap"
	"math"

	"code.hybscloud.com/lpel"
)

// parkedPriority is the Go equivalent of the original's DBL_MIN sentinel:
// a source task whose output backlog has exceeded the configured
// negative-demand limit is given this priority instead of whatever its
// PriorityFunc would compute, which -- being a max-heap -- sinks it below
// every other ready task without needing a separate parked list. It only
// surfaces at the heap root once it's the sole ready task, which
// available() treats as nothing poppable.
var parkedPriority = math.Inf(-1)

type heapItem struct {
	task     *lpel.Task
	priority float64
	index    int
}

// taskHeap is a binary max-heap of ready tasks, ordered by priority, the
// master goroutine's sole piece of scheduling state. container/heap
// gives the original's hand-rolled binary heap (initial 50-slot backing
// array, doubled on overflow) for free, including its growable backing
// array. Each item tracks its own slot so priorityQueue.fix can
// call heap.Fix after recomputing a live element's key without a linear
// scan -- the increase/decrease-key operation the master leans on.
type taskHeap []*heapItem

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].priority > h[j].priority } // max-heap
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// priorityQueue wraps taskHeap with the priority function the runtime
// was configured to use, and a default initial capacity matching the
// original's starting heap size. items indexes live heap entries by
// task so reprioritizeNeighbours can find a neighbour's slot in O(1).
type priorityQueue struct {
	h        taskHeap
	items    map[*lpel.Task]*heapItem
	fn       PriorityFunc
	loc      *LocationPriority
	randPrio bool

	// negDemandLimit is the backlog threshold beyond which a source task
	// (one with no input streams) is parked at parkedPriority instead of
	// scheduled normally. Negative disables the check, matching this
	// package's other "negative means off" conventions.
	negDemandLimit float64
}

func newPriorityQueue(index int, loc *LocationPriority, negDemandLimit float64) *priorityQueue {
	pq := &priorityQueue{
		h:              make(taskHeap, 0, 50),
		items:          make(map[*lpel.Task]*heapItem, 50),
		negDemandLimit: negDemandLimit,
	}
	switch index {
	case 15:
		pq.loc = loc
	case 16:
		pq.randPrio = true
	default:
		pq.fn = PriorityByIndex(index)
	}
	heap.Init(&pq.h)
	return pq
}

func (pq *priorityQueue) priority(t *lpel.Task) float64 {
	ins, outs := t.Ins(), t.Outs()
	if len(ins) == 0 && pq.negDemandLimit >= 0 && sumPending(outs) > pq.negDemandLimit {
		return parkedPriority
	}
	switch {
	case pq.loc != nil:
		return pq.loc.compute(t)
	case pq.randPrio:
		if p, ok := t.SchedInfo().(float64); ok {
			return p
		}
		p := StaticRandomPriority()
		t.SetSchedInfo(p)
		return p
	default:
		return pq.fn(len(ins) > 0, len(outs) > 0, sumPending(ins), sumPending(outs))
	}
}

func (pq *priorityQueue) push(t *lpel.Task) {
	item := &heapItem{task: t, priority: pq.priority(t)}
	heap.Push(&pq.h, item)
	pq.items[t] = item
	pq.reprioritizeNeighbours(t)
}

func (pq *priorityQueue) pop() *lpel.Task {
	if pq.h.Len() == 0 {
		return nil
	}
	item := heap.Pop(&pq.h).(*heapItem)
	delete(pq.items, item.task)
	pq.reprioritizeNeighbours(item.task)
	return item.task
}

func (pq *priorityQueue) empty() bool { return pq.h.Len() == 0 }

// available reports whether the queue has a task the master can actually
// dispatch right now. It differs from !empty() only when the sole ready
// task is a parked source task sitting over its negative-demand limit
// (see parkedPriority): empty() would still say false, but there is
// nothing useful to pop.
func (pq *priorityQueue) available() bool {
	return pq.h.Len() > 0 && pq.h[0].priority != parkedPriority
}

// reprioritizeNeighbours recomputes and re-seats the heap key of every
// task that shares a stream with t (its producers and consumers), per
// after any enqueue or dequeue: a neighbour's priority depends on the
// occupancy of the streams it shares with t, which just changed. Only a
// neighbour currently sitting InQueue (present in items) has a slot to
// fix; a neighbour that's running or assigned to a worker is untouched
// here and gets its own fresh priority computed the next time it's
// pushed.
func (pq *priorityQueue) reprioritizeNeighbours(t *lpel.Task) {
	for _, sd := range t.Ins() {
		pq.fix(sd.Stream().Writer())
	}
	for _, sd := range t.Outs() {
		pq.fix(sd.Stream().Reader())
	}
}

func (pq *priorityQueue) fix(neighbour *lpel.Task) {
	if neighbour == nil {
		return
	}
	item, ok := pq.items[neighbour]
	if !ok {
		return
	}
	item.priority = pq.priority(neighbour)
	heap.Fix(&pq.h, item.index)
}

// sumPending totals the items waiting across sds. Streams marked as
// graph entry or exit points are skipped: their occupancy is driven by
// the world outside the task graph, and counting it would let an
// external burst distort a source or sink task's scheduling priority.
func sumPending(sds []*lpel.StreamDescriptor) float64 {
	var sum float64
	for _, sd := range sds {
		s := sd.Stream()
		if s.IsEntry() || s.IsExit() {
			continue
		}
		sum += float64(s.Pending())
	}
	return sum
}
