// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"code.hybscloud.com/lpel/lpelmon"
)

// TaskState is the task's position in its state machine, matching the
// original library's single-character state codes so monitor traces and
// this package's debug logging stay readable side by side with the C
// implementation's behaviour.
type TaskState byte

const (
	TaskCreated TaskState = 'C'
	TaskRunning TaskState = 'U'
	TaskReady   TaskState = 'R'
	TaskBlocked TaskState = 'B'
	TaskMutex   TaskState = 'X'
	TaskZombie  TaskState = 'Z'

	// TaskInQueue and TaskReturned exist only under the HRC backend:
	// InQueue means the task sits in the master's priority heap,
	// Returned means a worker has handed a blocked task back to the
	// master but no wakeup has arrived for it yet. The master is the
	// only goroutine that sets either.
	TaskInQueue  TaskState = 'Q'
	TaskReturned TaskState = 'T'
)

func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "created"
	case TaskRunning:
		return "running"
	case TaskReady:
		return "ready"
	case TaskBlocked:
		return "blocked"
	case TaskMutex:
		return "mutex"
	case TaskZombie:
		return "zombie"
	case TaskInQueue:
		return "inqueue"
	case TaskReturned:
		return "returned"
	default:
		return "unknown"
	}
}

// IsBlocked reports whether s is a parked-waiting state: blocked on a
// stream or contending on a task mutex. Scheduling logic treats the two
// identically; monitors report them apart.
func (s TaskState) IsBlocked() bool { return s == TaskBlocked || s == TaskMutex }

// TaskFunc is a task's entry point. The returned value becomes outarg,
// retrievable from whatever joins the task (there is no "join" call in the
// public API, mirroring the original: a task normally hands its outarg out
// through a stream before exiting).
type TaskFunc func(inarg any) any

// Flag mirrors the original library's LPEL_FLAG_* task placement hints.
type Flag int

const (
	FlagNone      Flag = 0
	FlagPinned    Flag = 1 << 0
	FlagExclusive Flag = 1 << 1
)

// Task is a single lightweight, cooperatively scheduled unit of work. A
// Task is never copied; all access goes through its pointer, matching the
// original's lpel_task_t.
//
// Task carries no exported fields. Backends reach the state they need
// through the accessor methods below and through SchedInfo, which is an
// opaque slot a backend may use to attach its own bookkeeping (a DECEN
// lane timestamp, an HRC heap index) without this package knowing about
// scheduling dialects.
type Task struct {
	mu sync.Mutex

	id      uint64
	state   TaskState
	worker  int
	flags   Flag
	traceID uuid.UUID

	fn     TaskFunc
	inarg  any
	outarg any

	// stackSize is the stack budget the task was created with,
	// normalized to [MinStackSize, ...] at creation. Goroutine stacks
	// grow on their own, so this is informational: it records what the
	// host asked for, after defaulting and clamping.
	stackSize int

	schedInfo any

	// wrap, when non-nil, marks this task as running on its own
	// dedicated wrapper goroutine (see wrapper.go) instead of a
	// backend's worker pool; wakeups route to the wrapper's mailbox.
	wrap *wrapper

	// pollToken arbitrates which of several racing producers wakes a
	// task parked in a multi-stream poll (see stream.go's write path
	// and streamset.go's poll). It needs a true compare-and-swap across
	// producers on unrelated streams, which the atomix surface used
	// elsewhere in this package doesn't expose (Load/Store/Add only),
	// so this one field uses sync/atomic directly.
	pollToken atomic.Int32
	wakeupSD  *StreamDescriptor

	ins  []*StreamDescriptor
	outs []*StreamDescriptor

	// priority is DECEN's data-model attribute for a task: which ready
	// lane a backend dispatches it into (see decen/queue.go's
	// clampLane). HRC ignores it; HRC's priority comes from the
	// configured PriorityFunc instead.
	priority int

	// recLimit is the maximum number of stream reads a task may perform
	// before being forced to yield, a cadence control so one
	// never-blocking task can't starve the rest of its worker. Negative
	// disables the check. recCount is the running count since the last
	// forced yield; it's only ever touched from the task's own running
	// goroutine, so it needs no lock (see stream.go's checkRecLimit).
	recLimit int
	recCount int

	userData    any
	userDataDtr func(*Task, any)

	mon *lpelmon.TaskHandle

	// waitEMA is an exponential moving average of time spent blocked,
	// maintained by timing.go and consumed by the WAIT-PROP placement
	// policy (see placement/waitprop.go).
	waitEMA float64

	// gctx is the goroutine/channel machine context, set up by
	// startTask (context.go) and driven by whichever backend runs this
	// task's worker loop.
	gctx *taskContext

	rt *Runtime
}

// ID returns the task's runtime-unique identifier.
func (t *Task) ID() uint64 { return t.id }

// StackSize returns the stack budget the task was created with, after
// defaulting and minimum clamping (see TaskCreate).
func (t *Task) StackSize() int { return t.stackSize }

// State returns the task's current state. Safe to call from any
// goroutine; the result may be stale the instant it's returned.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s TaskState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// WorkerID returns the id of the worker currently responsible for this
// task. Until a backend assigns one it is the worker passed to
// TaskCreate (possibly lpel.MapOthers); under HRC it is the worker the
// task was last dispatched to, also while it sits in the master's heap.
func (t *Task) WorkerID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.worker
}

func (t *Task) setWorkerID(id int) {
	t.mu.Lock()
	t.worker = id
	t.mu.Unlock()
}

// Priority returns the task's DECEN ready-lane priority, as last set by
// TaskSetPriority (zero if never set).
func (t *Task) Priority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

func (t *Task) setPriority(p int) {
	t.mu.Lock()
	t.priority = p
	t.mu.Unlock()
}

// RecLimit returns the task's configured yield-cadence limit, as last
// set by TaskSetRecLimit. Negative means disabled.
func (t *Task) RecLimit() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recLimit
}

func (t *Task) setRecLimit(n int) {
	t.mu.Lock()
	t.recLimit = n
	t.recCount = 0
	t.mu.Unlock()
}

// SchedInfo returns the backend-private scheduling bookkeeping previously
// stored with SetSchedInfo, or nil.
func (t *Task) SchedInfo() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.schedInfo
}

// SetSchedInfo stores backend-private scheduling bookkeeping on the task.
// Mirrors the original's lpel_task_t.sched_info field.
func (t *Task) SetSchedInfo(v any) {
	t.mu.Lock()
	t.schedInfo = v
	t.mu.Unlock()
}

// Monitor returns the task's monitor handle, or nil if monitoring is
// disabled or LpelTaskMonitor-equivalent was never called.
func (t *Task) Monitor() *lpelmon.TaskHandle { return t.mon }

// TraceID returns the task's correlation id, used to tag monitor events
// emitted for this task.
func (t *Task) TraceID() uuid.UUID { return t.traceID }

// UserData returns the task-local value set by SetUserData, or nil.
func (t *Task) UserData() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userData
}

// SetUserData attaches an arbitrary value to the task, retrievable with
// UserData. Replaces any previously set value without invoking its
// destructor; call the destructor yourself first if that matters.
func (t *Task) SetUserData(data any) {
	t.mu.Lock()
	t.userData = data
	t.mu.Unlock()
}

// SetUserDataDestructor registers a function invoked with the task's user
// data when the task exits. A nil destructor disables the call.
func (t *Task) SetUserDataDestructor(destr func(*Task, any)) {
	t.mu.Lock()
	t.userDataDtr = destr
	t.mu.Unlock()
}

// UserDataDestructor returns the destructor previously registered with
// SetUserDataDestructor, or nil.
func (t *Task) UserDataDestructor() func(*Task, any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userDataDtr
}

// addStream records sd among the task's open input or output stream
// descriptors, mirroring LpelTaskAddStream. Called by StreamOpen.
func (t *Task) addStream(sd *StreamDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sd.mode == ModeRead {
		t.ins = append(t.ins, sd)
	} else {
		t.outs = append(t.outs, sd)
	}
}

// removeStream drops sd from the task's open descriptor lists, mirroring
// LpelTaskRemoveStream. Called by StreamClose.
func (t *Task) removeStream(sd *StreamDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := &t.ins
	if sd.mode != ModeRead {
		list = &t.outs
	}
	for i, d := range *list {
		if d == sd {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Ins returns a snapshot of the task's currently open input descriptors.
func (t *Task) Ins() []*StreamDescriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*StreamDescriptor, len(t.ins))
	copy(out, t.ins)
	return out
}

// Outs returns a snapshot of the task's currently open output
// descriptors.
func (t *Task) Outs() []*StreamDescriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*StreamDescriptor, len(t.outs))
	copy(out, t.outs)
	return out
}
