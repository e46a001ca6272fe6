// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// Status mirrors the original library's LPEL_ERR_* return codes, kept as a
// typed value so callers can switch on it instead of matching strings.
type Status int

const (
	StatusSuccess Status = iota
	StatusFail
	StatusInvalid
	StatusAssign
	StatusExclusive
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFail:
		return "fail"
	case StatusInvalid:
		return "invalid argument"
	case StatusAssign:
		return "cannot assign thread to processors"
	case StatusExclusive:
		return "cannot assign core exclusively"
	default:
		return "unknown status"
	}
}

// StatusError wraps a [Status] with the operation and context that produced
// it, so logs and error chains keep the offending call site.
type StatusError struct {
	Op     string
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lpel: %s: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("lpel: %s: %s", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

func newStatusError(op string, status Status, err error) *StatusError {
	return &StatusError{Op: op, Status: status, Err: err}
}

// ErrWouldBlock indicates a non-blocking stream operation could not proceed
// immediately: TryWrite found the buffer full. It is a control flow
// signal, not a failure, and is an alias for [iox.ErrWouldBlock] for
// ecosystem consistency with the rest of the stack.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool { return iox.IsWouldBlock(err) }

// IsSemantic reports whether err is a control flow signal, not a failure.
func IsSemantic(err error) bool { return iox.IsSemantic(err) }

// IsNonFailure reports whether err represents a non-failure condition.
func IsNonFailure(err error) bool { return iox.IsNonFailure(err) }

// ErrNotRunning is returned by operations that require a runtime set up
// by [Init] (TaskCreate, Start, Cleanup), and by [Stop] when the runtime
// was never started with [Start].
var ErrNotRunning = errors.New("lpel: runtime is not running")

// ErrAlreadyRunning is returned by [Start] when called more than once
// without an intervening [Cleanup].
var ErrAlreadyRunning = errors.New("lpel: runtime is already running")

// ErrUnknownBackend is returned by [Init], wrapped in a *StatusError with
// Status StatusInvalid, when cfg.Backend names a
// scheduling dialect that never registered itself via [RegisterBackend].
var ErrUnknownBackend = errors.New("lpel: unknown backend")

// assertf panics with a formatted message when the lpeldebug build tag is
// set and cond is false. It compiles away to nothing otherwise, matching
// how the original library's NDEBUG-gated assert() calls behave in release
// builds. See debug.go / debug_off.go.
func assertf(cond bool, format string, args ...any) {
	if debugAssertionsEnabled && !cond {
		panic(fmt.Sprintf("lpel: assertion failed: "+format, args...))
	}
}
