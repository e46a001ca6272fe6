// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lpel implements a light-weight parallel execution layer: a
// user-space cooperative task runtime that multiplexes many lightweight
// Tasks over a small, fixed pool of worker goroutines, connected by
// bounded Streams.
//
// # Quick Start
//
//	import (
//		"code.hybscloud.com/lpel"
//		_ "code.hybscloud.com/lpel/decen"
//	)
//
//	func main() {
//		cfg := lpel.DefaultConfig()
//		cfg.NumWorkers = 4
//		if err := lpel.Init(cfg); err != nil {
//			panic(err)
//		}
//		defer lpel.Cleanup()
//
//		if err := lpel.Start(); err != nil {
//			panic(err)
//		}
//
//		s := lpel.NewStream(16)
//		producer, _ := lpel.TaskCreate(lpel.MapOthers, func(_ any) any {
//			t := lpel.TaskSelf()
//			sd := lpel.StreamOpen(t, s, lpel.ModeWrite)
//			defer lpel.StreamClose(sd, false)
//			lpel.Write(sd, "hello")
//			return nil
//		}, nil, 0, lpel.FlagNone)
//		lpel.TaskStart(producer)
//
//		consumer, _ := lpel.TaskCreate(lpel.MapOthers, func(_ any) any {
//			t := lpel.TaskSelf()
//			sd := lpel.StreamOpen(t, s, lpel.ModeRead)
//			defer lpel.StreamClose(sd, false)
//			println(lpel.Read(sd).(string))
//			return nil
//		}, nil, 0, lpel.FlagNone)
//		lpel.TaskStart(consumer)
//
//		lpel.Stop()
//	}
//
// # Scheduling dialects
//
// This package defines Task, Stream and the public API; it schedules
// nothing itself. Blank-import exactly one of:
//
//   - code.hybscloud.com/lpel/decen — fully decentralized, per-worker
//     ready lanes and WAIT-PROP migration
//   - code.hybscloud.com/lpel/hrc — centralized master with a priority
//     heap and a choice of 16 priority functions
//
// and set Config.Backend to "decen" or "hrc" accordingly. Backends
// register themselves at init time the way database/sql drivers do; this
// package never imports either one.
//
// # Streams and descriptors
//
// A Stream is a bounded, single-producer/single-consumer channel of
// arbitrary values. Tasks never touch a Stream directly: StreamOpen
// returns a StreamDescriptor, and Read/Write/Peek/TryWrite take the
// descriptor. A StreamSet groups descriptors so a task can Poll across
// several inputs at once instead of blocking on one.
//
// # Task lifecycle
//
// TaskCreate allocates a task (in the Created state) bound to a worker or
// to lpel.MapOthers for the backend to place. TaskStart makes it Ready
// and launches its goroutine. From within the task's own goroutine,
// TaskSelf recovers the running Task, TaskYield gives up the worker
// without blocking, and TaskExit ends the task immediately with a result.
// There is no Join: a task normally hands its result out through a
// Stream before returning.
//
// # Monitoring
//
// Config.Mon takes an *lpelmon.Table of optional hook functions called at
// worker/task/stream lifecycle points; package lpelmon also ships
// PromMonitor, a Prometheus-backed Table builder.
//
// # Error handling
//
// Blocking operations (Read, Write, Lock) never return an error: they
// block until they can proceed, mirroring the original library. Only the
// non-blocking variants (TryWrite) can fail, with ErrWouldBlock -- a
// control flow signal, not a failure; see IsWouldBlock. Init and
// Config.Validate report configuration errors as a *StatusError carrying
// one of the original LPEL_ERR_* codes as a typed Status; Start and Stop
// return the plain ErrNotRunning / ErrAlreadyRunning sentinels.
package lpel
