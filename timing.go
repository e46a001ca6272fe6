// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import "time"

// waitEMAAlpha weights how quickly a task's wait-time average reacts to a
// single new sample. Chosen once, not exposed, matching the original's
// hard-coded decay constants in src/sched/hierarchy/taskpriority.c.
const waitEMAAlpha = 0.2

// recordWait folds d into t's exponential moving average of time spent
// blocked. Read by the WAIT-PROP placement policy (see package placement)
// Each raw duration is also reported to lpelmon's TaskBlockTime hook.
func recordWait(t *Task, d time.Duration) {
	t.mu.Lock()
	sample := d.Seconds()
	if t.waitEMA == 0 {
		t.waitEMA = sample
	} else {
		t.waitEMA = waitEMAAlpha*sample + (1-waitEMAAlpha)*t.waitEMA
	}
	t.mu.Unlock()

	if t.rt != nil && t.rt.mon.TaskBlockTime != nil && t.mon != nil {
		t.rt.mon.TaskBlockTime(t.mon, d)
	}
}

// WaitProportion returns t's current exponential moving average of time
// spent blocked, in seconds. Used by placement policies to estimate how
// communication-bound a task is.
func (t *Task) WaitProportion() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waitEMA
}
