// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lpeldebug

package lpel

// debugAssertionsEnabled gates assertf. Build with -tags lpeldebug to turn
// internal invariant checks (task state transitions, queue linkage) into
// panics instead of silent no-ops.
const debugAssertionsEnabled = true
