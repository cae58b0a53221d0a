package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_CreateTask(t *testing.T) {
	sched := New(Options{})

	renderCalled := false
	task := sched.CreateTask(func() { renderCalled = true })

	if task == nil {
		t.Fatal("CreateTask returned nil")
	}
	if task.ID() == 0 {
		t.Error("Task ID should not be 0")
	}
	if renderCalled {
		t.Error("Render should not be called during creation")
	}
	if sched.TaskCount() != 1 {
		t.Errorf("Expected 1 task, got %d", sched.TaskCount())
	}
}

func TestScheduler_MarkDirtyCoalesces(t *testing.T) {
	sched := New(Options{})

	var renders int
	task := sched.CreateTask(func() { renders++ })

	sched.MarkDirty(task)
	sched.MarkDirty(task)
	sched.MarkDirty(task)
	if !task.Dirty() {
		t.Error("Task should be dirty before the frame runs")
	}

	sched.Advance(sched.FrameInterval())
	if renders != 1 {
		t.Errorf("Expected render to be called once, got %d", renders)
	}

	sched.MarkDirty(task)
	sched.Flush()
	if renders != 2 {
		t.Errorf("Expected render to be called twice, got %d", renders)
	}
}

func TestScheduler_TimersFireInDueOrder(t *testing.T) {
	sched := New(Options{})

	var order []string
	sched.After(300*time.Millisecond, func() { order = append(order, "c") })
	sched.After(100*time.Millisecond, func() { order = append(order, "a") })
	sched.After(100*time.Millisecond, func() { order = append(order, "b") })

	sched.Advance(150 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("Expected [a b] after 150ms, got %v", order)
	}

	sched.Advance(200 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Errorf("Expected c to fire last, got %v", order)
	}
}

func TestScheduler_TimerStop(t *testing.T) {
	sched := New(Options{})

	fired := false
	timer := sched.After(50*time.Millisecond, func() { fired = true })
	if !timer.Stop() {
		t.Error("Stop on a pending timer should report true")
	}
	if timer.Stop() {
		t.Error("Second Stop should report false")
	}

	sched.Advance(100 * time.Millisecond)
	if fired {
		t.Error("Stopped timer fired")
	}
	if sched.PendingTimers() != 0 {
		t.Errorf("Expected 0 pending timers, got %d", sched.PendingTimers())
	}
}

func TestScheduler_RequestFrameRunsOnce(t *testing.T) {
	sched := New(Options{})

	var calls int
	var stamp time.Time
	sched.RequestFrame(func(now time.Time) {
		calls++
		stamp = now
	})
	cancelled := sched.RequestFrame(func(time.Time) { t.Error("cancelled frame ran") })
	sched.CancelFrame(cancelled)

	start := sched.Now()
	sched.Advance(3 * sched.FrameInterval())
	if calls != 1 {
		t.Errorf("Expected 1 frame callback, got %d", calls)
	}
	if !stamp.Equal(start.Add(sched.FrameInterval())) {
		t.Errorf("Expected frame timestamp %v, got %v", start.Add(sched.FrameInterval()), stamp)
	}
}

func TestScheduler_ErrorHandling(t *testing.T) {
	sched := New(Options{})

	var handled atomic.Bool
	task := sched.CreateTask(func() { panic("boom") })
	task.SetErrorHandler(func(task *Task, err interface{}) bool {
		handled.Store(true)
		return false
	})

	sched.MarkDirty(task)
	sched.Flush()

	if !handled.Load() {
		t.Error("Error handler was not called")
	}
	if sched.TaskCount() != 0 {
		t.Errorf("Expected panicking task to be removed, got %d tasks", sched.TaskCount())
	}
}

func TestScheduler_PostFromOtherGoroutines(t *testing.T) {
	sched := New(Options{})

	var count int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Post(func() { count++ })
		}()
	}
	wg.Wait()
	sched.Flush()

	if count != 20 {
		t.Errorf("Expected 20 posted calls, got %d", count)
	}
}

func TestScheduler_RunStopsOnContext(t *testing.T) {
	sched := New(Options{FrameInterval: 5 * time.Millisecond})

	var ran atomic.Bool
	sched.Post(func() { ran.Store(true) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := sched.Run(ctx)

	if err != context.DeadlineExceeded {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if !ran.Load() {
		t.Error("Posted work did not run")
	}
	if sched.Frames() == 0 {
		t.Error("Expected at least one frame")
	}
}
