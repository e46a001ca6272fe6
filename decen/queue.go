package decen

import "code.hybscloud.com/lpel"

// numLanes is the number of FIFO priority lanes a worker's ready queue
// keeps, mirroring the original scheduler's SCHED_NUM_PRIO. Lane 0 holds
// ordinary ready tasks; lane 1 holds tasks that just woke from a stream
// block, so a producer that unblocked a consumer gets that consumer
// running again ahead of tasks that have been runnable for a while but
// never touched a stream -- favoring pipeline latency over strict FIFO
// fairness.
const numLanes = 2

const (
	laneNormal = 0
	laneWoken  = 1
)

// readyQueue is a worker's ready queue. It needs no lock: every push
// comes either from the worker's own goroutine draining its mailbox, or
// from a task's goroutine while that task is the one occupying this
// worker's dispatch slot (a same-worker wake, see backend.Wake) -- never
// from any other goroutine concurrently.
type readyQueue struct {
	lanes [numLanes][]*lpel.Task
	n     int
}

func (q *readyQueue) push(t *lpel.Task, lane int) {
	q.lanes[lane] = append(q.lanes[lane], t)
	q.n++
}

func (q *readyQueue) pop() *lpel.Task {
	for lane := numLanes - 1; lane >= 0; lane-- {
		if len(q.lanes[lane]) > 0 {
			t := q.lanes[lane][0]
			q.lanes[lane] = q.lanes[lane][1:]
			q.n--
			return t
		}
	}
	return nil
}

func (q *readyQueue) empty() bool { return q.n == 0 }

func (q *readyQueue) len() int { return q.n }

// clampLane maps a task's TaskSetPriority value onto a valid lane index,
// DECEN's priority data-model attribute in this scheduling dialect: p <= 0
// is the ordinary lane, anything higher dispatches into the same
// fast-path lane a stream wakeup would use. Out-of-range values clamp
// instead of panicking since a host may pass an arbitrary int.
func clampLane(p int) int {
	if p <= 0 {
		return laneNormal
	}
	if p >= numLanes {
		return numLanes - 1
	}
	return p
}
