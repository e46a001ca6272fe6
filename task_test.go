// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lpel_test

import (
	"testing"

	"code.hybscloud.com/lpel"
	_ "code.hybscloud.com/lpel/decen"
)

// TestTaskLifecycle drives a task through its full state machine by
// calling RunTask directly, the same entry point a backend's worker loop
// uses, rather than relying on a live scheduler to pick the task up.
func TestTaskLifecycle(t *testing.T) {
	cfg := lpel.DefaultConfig()
	cfg.NumWorkers = 1
	if err := lpel.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { lpel.Cleanup() })

	task, err := lpel.TaskCreate(0, func(in any) any {
		return in.(int) + 1
	}, 41, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	if task.State() != lpel.TaskCreated {
		t.Fatalf("new task state = %v, want created", task.State())
	}

	lpel.TaskStart(task)
	if task.State() != lpel.TaskReady {
		t.Fatalf("started task state = %v, want ready", task.State())
	}

	lpel.RunTask(task)
	if task.State() != lpel.TaskZombie {
		t.Fatalf("finished task state = %v, want zombie", task.State())
	}
	if got := task.Outarg(); got != 42 {
		t.Fatalf("Outarg() = %v, want 42", got)
	}

	lpel.DestroyTask(task)
}

// TestTaskYieldReturnsToReady checks that TaskYield hands control back to
// RunTask's caller without finishing the task, and that a second RunTask
// resumes it where it left off.
func TestTaskYieldReturnsToReady(t *testing.T) {
	cfg := lpel.DefaultConfig()
	cfg.NumWorkers = 1
	if err := lpel.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { lpel.Cleanup() })

	resumed := false
	task, err := lpel.TaskCreate(0, func(any) any {
		lpel.TaskYield()
		resumed = true
		return nil
	}, nil, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	lpel.TaskStart(task)

	lpel.RunTask(task)
	if task.State() != lpel.TaskReady {
		t.Fatalf("state after yield = %v, want ready", task.State())
	}
	if resumed {
		t.Fatalf("task resumed before being rescheduled")
	}

	lpel.RunTask(task)
	if task.State() != lpel.TaskZombie {
		t.Fatalf("state after resuming = %v, want zombie", task.State())
	}
	if !resumed {
		t.Fatalf("task never ran past TaskYield")
	}
}

// TestTaskUserData exercises the user-data slot and its destructor hook.
func TestTaskUserData(t *testing.T) {
	cfg := lpel.DefaultConfig()
	cfg.NumWorkers = 1
	if err := lpel.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { lpel.Cleanup() })

	var destroyed any
	task, err := lpel.TaskCreate(0, func(any) any { return nil }, nil, 0, lpel.FlagNone)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	task.SetUserData("hello")
	task.SetUserDataDestructor(func(_ *lpel.Task, data any) { destroyed = data })

	if got := task.UserData(); got != "hello" {
		t.Fatalf("UserData() = %v, want hello", got)
	}

	lpel.TaskStart(task)
	lpel.RunTask(task)

	if destroyed != "hello" {
		t.Fatalf("destructor ran with %v, want hello", destroyed)
	}
}

// TestTaskStackSizeBounds checks the creation-time stack budget rules:
// non-positive requests take the default, undersized requests are raised
// to the minimum, and reasonable requests stick.
func TestTaskStackSizeBounds(t *testing.T) {
	cfg := lpel.DefaultConfig()
	cfg.NumWorkers = 1
	if err := lpel.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { lpel.Cleanup() })

	cases := []struct {
		request int
		want    int
	}{
		{0, lpel.DefaultStackSize},
		{-1, lpel.DefaultStackSize},
		{100, lpel.MinStackSize},
		{lpel.MinStackSize, lpel.MinStackSize},
		{64 << 10, 64 << 10},
	}
	for _, c := range cases {
		task, err := lpel.TaskCreate(0, func(any) any { return nil }, nil, c.request, lpel.FlagNone)
		if err != nil {
			t.Fatalf("TaskCreate(stack %d): %v", c.request, err)
		}
		if got := task.StackSize(); got != c.want {
			t.Errorf("StackSize() for request %d = %d, want %d", c.request, got, c.want)
		}
	}
}
