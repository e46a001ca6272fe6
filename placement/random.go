package placement

import (
	"math/rand/v2"

	"code.hybscloud.com/lpel"
	"code.hybscloud.com/lpel/decen"
)

// Random migrates a task to a uniformly chosen different worker with
// probability Probability on each yield. It needs no history and is the
// cheapest policy to reason about; WaitProp (see waitprop.go) generally
// schedules better under skewed communication patterns.
type Random struct {
	Probability float64
}

// NewRandom returns a Random policy with the given per-yield migration
// probability.
func NewRandom(probability float64) *Random {
	return &Random{Probability: probability}
}

func (r *Random) Check(t *lpel.Task) {
	n := decen.NumWorkers()
	if n < 2 || rand.Float64() >= r.Probability {
		return
	}
	target := rand.IntN(n)
	if target == t.WorkerID() {
		target = (target + 1) % n
	}
	decen.MigrateTask(t, target)
}
