// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import "runtime"

// PinWorker locks the calling goroutine to its current OS thread for the
// rest of its lifetime. Worker loops (package decen, package hrc) call
// this once at startup when FlagPinned or FlagExclusive placement was
// requested, standing in for the original's CPU-affinity step in
// lpel_hwloc.c/cpuassign.c: Go has no portable userspace topology query
// or affinity syscall in the standard library, and this stack's
// dependency set doesn't add golang.org/x/sys/unix for the one call
// (SchedSetaffinity) that would need it, so the affinity guarantee this
// package actually gives is "this worker never migrates to a different
// OS thread mid-task", not "this worker is pinned to a specific core".
// That is enough for the invariant client code actually needs: a task's
// thread-local state (current-task lookup, see context.go) never moves
// out from under it mid-switch.
func PinWorker() { runtime.LockOSThread() }
