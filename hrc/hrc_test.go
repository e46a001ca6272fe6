package hrc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/lpel"
	"code.hybscloud.com/lpel/hrc"
)

// TestMasterSchedulesFanIn runs the whole master/worker protocol end to
// end: several sources feed one slow-draining sink over unbounded
// streams, with the default in-minus-out priority function deciding who
// runs. Every hop exercises the Request/Assign/Return cycle, and the
// sink's blocking reads exercise the Wakeup/Return coalescing (a wakeup
// can reach the master before or after the worker hands the blocked
// sink back -- both orders must requeue the sink exactly once).
func TestMasterSchedulesFanIn(t *testing.T) {
	hrc.Configure(14, nil, -1)

	cfg := lpel.DefaultConfig()
	cfg.Backend = "hrc"
	cfg.NumWorkers = 3
	require.NoError(t, lpel.Init(cfg), "Init")
	require.NoError(t, lpel.Start(), "Start")

	const (
		sources = 3
		perSrc  = 20
	)
	streams := make([]*lpel.Stream, sources)
	for i := range streams {
		streams[i] = lpel.NewUnboundedStream()
	}

	done := make(chan int, 1)

	sink, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
		self := lpel.TaskSelf()
		sds := make([]*lpel.StreamDescriptor, sources)
		for i, s := range streams {
			sds[i] = lpel.StreamOpen(self, s, lpel.ModeRead)
		}
		total := 0
		for _, sd := range sds {
			for j := 0; j < perSrc; j++ {
				lpel.Read(sd)
				total++
			}
		}
		for _, sd := range sds {
			lpel.StreamClose(sd, false)
		}
		done <- total
		return nil
	}, nil, 0, lpel.FlagNone)
	require.NoError(t, err, "TaskCreate(sink)")
	// force the sink back through the master's ready queue every few
	// items, so re-enqueue of a still-ready task is on the tested path
	lpel.TaskSetRecLimit(sink, 5)
	lpel.TaskStart(sink)

	for i := 0; i < sources; i++ {
		s := streams[i]
		src, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
			wr := lpel.StreamOpen(lpel.TaskSelf(), s, lpel.ModeWrite)
			for j := 0; j < perSrc; j++ {
				lpel.Write(wr, j)
				if j%7 == 6 {
					lpel.TaskYield()
				}
			}
			lpel.StreamClose(wr, false)
			return nil
		}, nil, 0, lpel.FlagNone)
		require.NoError(t, err, "TaskCreate(source %d)", i)
		lpel.TaskStart(src)
	}

	select {
	case total := <-done:
		require.Equal(t, sources*perSrc, total, "sink item count")
	case <-time.After(10 * time.Second):
		t.Fatalf("sink never drained its sources")
	}

	require.NoError(t, lpel.Stop(), "Stop")
	require.NoError(t, lpel.Cleanup(), "Cleanup")
	require.Equal(t, lpel.TaskZombie, sink.State(), "sink state after cleanup")
}

// TestMasterTerminatesIdleWorkers checks the shutdown handshake alone: a
// started HRC runtime with no tasks at all must stop cleanly, with the
// master releasing every idle worker exactly once.
func TestMasterTerminatesIdleWorkers(t *testing.T) {
	hrc.Configure(14, nil, -1)

	cfg := lpel.DefaultConfig()
	cfg.Backend = "hrc"
	cfg.NumWorkers = 2
	require.NoError(t, lpel.Init(cfg), "Init")
	require.NoError(t, lpel.Start(), "Start")

	require.NoError(t, lpel.Stop(), "Stop")

	cleaned := make(chan error, 1)
	go func() { cleaned <- lpel.Cleanup() }()
	select {
	case err := <-cleaned:
		require.NoError(t, err, "Cleanup")
	case <-time.After(5 * time.Second):
		t.Fatalf("Cleanup hung: master never released its workers")
	}
}
