// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/lpel"
	_ "code.hybscloud.com/lpel/decen"
)

func TestBiSemaSignalledByDefault(t *testing.T) {
	s := lpel.NewBiSema()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Wait never returned on a freshly created (signalled) BiSema")
	}
}

func TestBiSemaWaitBlocksUntilSignal(t *testing.T) {
	s := lpel.NewBiSema()
	s.Wait() // consume the initial signal

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Wait returned before Signal was called")
	case <-time.After(20 * time.Millisecond):
	}

	s.Signal()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Wait never returned after Signal")
	}
}

// TestTaskMutexSerializesTasks runs many tasks that each append their id
// to a shared slice while holding a task mutex, and checks the slice ends
// up with exactly one entry per task -- i.e. every task got through
// Lock/Unlock exactly once and no hand-off was lost.
func TestTaskMutexSerializesTasks(t *testing.T) {
	startTestRuntime(t, 4)

	m := lpel.NewTaskMutex()
	var mu sync.Mutex
	var order []int

	const n = 20
	done := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		i := i
		task, err := lpel.TaskCreate(lpel.MapOthers, func(any) any {
			m.Lock()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			m.Unlock()
			done <- struct{}{}
			return nil
		}, nil, 0, lpel.FlagNone)
		if err != nil {
			t.Fatalf("TaskCreate: %v", err)
		}
		lpel.TaskStart(task)
	}

	for i := 0; i < n; i++ {
		<-done
	}

	mu.Lock()
	got := len(order)
	mu.Unlock()
	if got != n {
		t.Fatalf("recorded %d critical section entries, want %d", got, n)
	}

	if err := lpel.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
