package hrc

import (
	"math"
	"math/rand/v2"

	"code.hybscloud.com/lpel"
)

// PriorityFunc computes a task's scheduling priority from the total
// number of items waiting on its input streams (in), the total items
// already sitting unconsumed on its output streams (out -- demand the
// task has produced but downstream hasn't absorbed), and whether the
// task structurally has any streams at all in each direction (hasIn,
// hasOut -- false means "entry task" / "exit task", the original's
// in=-1 / out=-1 sentinel, not merely "momentarily nothing pending").
// Higher is scheduled sooner: input backlog raises a task's priority,
// output backlog lowers it, which is the whole throttling story for
// HRC's unbounded streams.
type PriorityFunc func(hasIn, hasOut bool, in, out float64) float64

// ratioFamily builds one of the three (I+1)/(O+1)-shaped families from
// the table the sixteen functions are drawn from: a middle
// formula plus the entry/exit variants that replace the sentinel -1
// rather than feeding it into the middle formula directly. exitInf
// selects the "+Inf for a sink" variant (odd-numbered slots in each pair
// of the original's table); the even-numbered slot uses entryFinite's
// counterpart, I+1 or (I+1)^2, for the exit side instead.
func ratioFamily(middle func(in, out float64) float64, entryZero bool, exitInf bool, exitFinite func(in float64) float64, entryFinite func(out float64) float64) PriorityFunc {
	return func(hasIn, hasOut bool, in, out float64) float64 {
		switch {
		case !hasOut && exitInf:
			return math.Inf(1)
		case !hasOut:
			return exitFinite(in)
		case !hasIn && entryZero:
			return 0
		case !hasIn:
			return entryFinite(out)
		default:
			return middle(in, out)
		}
	}
}

// priorityFuncs mirrors LpelTaskPrioInit's dispatch table in the
// original's src/sched/hierarchy/taskpriority.c: twelve formulas in
// three ratio families -- (I+1)/(O+1), its square on the numerator, and
// its square on the denominator -- each with two entry/exit sentinel
// styles (zero-or-reciprocal entry, infinite-or-numerator exit).
var priorityFuncs = [14]PriorityFunc{
	1: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / (out + 1) },
		true, true, nil, nil,
	),
	2: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / (out + 1) },
		true, false, func(in float64) float64 { return in + 1 }, nil,
	),
	3: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / (out + 1) },
		false, true, nil, func(out float64) float64 { return 1 / (out + 1) },
	),
	4: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / (out + 1) },
		false, false, func(in float64) float64 { return in + 1 }, func(out float64) float64 { return 1 / (out + 1) },
	),
	5: ratioFamily(
		func(in, out float64) float64 { return (in + 1) * (in + 1) / (out + 1) },
		true, true, nil, nil,
	),
	6: ratioFamily(
		func(in, out float64) float64 { return (in + 1) * (in + 1) / (out + 1) },
		true, false, func(in float64) float64 { return (in + 1) * (in + 1) }, nil,
	),
	7: ratioFamily(
		func(in, out float64) float64 { return (in + 1) * (in + 1) / (out + 1) },
		false, true, nil, func(out float64) float64 { return 1 / (out + 1) },
	),
	8: ratioFamily(
		func(in, out float64) float64 { return (in + 1) * (in + 1) / (out + 1) },
		false, false, func(in float64) float64 { return (in + 1) * (in + 1) }, func(out float64) float64 { return 1 / (out + 1) },
	),
	9: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / ((out + 1) * (out + 1)) },
		true, true, nil, nil,
	),
	10: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / ((out + 1) * (out + 1)) },
		true, false, func(in float64) float64 { return in + 1 }, nil,
	),
	11: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / ((out + 1) * (out + 1)) },
		false, true, nil, func(out float64) float64 { return 1 / ((out + 1) * (out + 1)) },
	),
	12: ratioFamily(
		func(in, out float64) float64 { return (in + 1) / ((out + 1) * (out + 1)) },
		false, false, func(in float64) float64 { return in + 1 }, func(out float64) float64 { return 1 / ((out + 1) * (out + 1)) },
	),
	13: priorFunc13,
}

// priorFunc13 is the dispatch table's dynamic-random entry: unlike
// StaticRandomPriority (index 16), which is sampled once per task,
// this reseeds from math/rand/v2 on every call, so a task configured
// with index 13 gets a fresh random priority at each reschedule instead
// of keeping the same one for its lifetime.
func priorFunc13(_, _ bool, _, _ float64) float64 { return rand.Float64() * 1000 }

// priorFunc14 is the original's linear "in minus out" priority: simplest
// of the family, and the default this package falls back to for an
// unrecognized index. in/out are already 0 for a task with no streams in
// that direction (see priorityQueue.priority), so no separate entry/exit
// branch is needed: zero is already the right sentinel for the linear
// formula.
func priorFunc14(_, _ bool, in, out float64) float64 { return in - out }

// PriorityByIndex returns the priority function numbered 1-14 in the
// original's dispatch table. Index 14, and any index outside 1-13,
// returns priorFunc14.
func PriorityByIndex(index int) PriorityFunc {
	if index >= 1 && index <= 13 {
		return priorityFuncs[index]
	}
	return priorFunc14
}

// LocationPriority (index 15 in the original) defers to an
// externally supplied hook, e.g. one keyed off a task's position in a
// static pipeline graph, rather than live stream occupancy. A nil hook
// makes every task equal priority.
type LocationPriority struct {
	Hook func(t *lpel.Task) float64
}

func (p LocationPriority) compute(t *lpel.Task) float64 {
	if p.Hook == nil {
		return 0
	}
	return p.Hook(t)
}

// StaticRandomPriority (index 16) assigns each task a random priority
// exactly once, the first time the master computes that task's priority
// (its first push onto the heap), rather than recomputing it from stream
// occupancy on every reschedule -- useful as a scheduling-overhead
// baseline to compare the occupancy-driven functions against.
func StaticRandomPriority() float64 { return rand.Float64() * 1000 }
