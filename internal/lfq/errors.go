// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import "code.hybscloud.com/iox"

// ErrWouldBlock is returned by a non-blocking Enqueue/Dequeue that cannot
// proceed immediately. It's the same sentinel package lpel re-exports at
// its own API boundary, so a caller never has to care which layer
// produced it.
var ErrWouldBlock = iox.ErrWouldBlock
