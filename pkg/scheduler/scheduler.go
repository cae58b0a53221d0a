// Package scheduler is the explorer's event loop: animation frames, timers,
// cross-goroutine posts and dirty render tasks all execute on whichever
// goroutine drives the loop, so the engine itself needs no locking.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultFrameInterval is one frame at 60 Hz.
const DefaultFrameInterval = time.Second / 60

// RenderFunc is the body of a render task.
type RenderFunc func()

// FrameFunc is an animation-frame callback; now is the frame timestamp.
type FrameFunc func(now time.Time)

// ErrorHandler handles panics during task execution.
// Returns true to keep the task, false to remove it.
type ErrorHandler func(task *Task, err interface{}) bool

// Task is a render job that runs at the end of a frame when dirty.
type Task struct {
	id      uint32
	render  RenderFunc
	dirty   atomic.Bool
	onError ErrorHandler
}

// ID returns the task's unique ID.
func (t *Task) ID() uint32 { return t.id }

// SetErrorHandler sets a custom error handler for this task.
func (t *Task) SetErrorHandler(handler ErrorHandler) { t.onError = handler }

// Dirty reports whether the task is waiting to run.
func (t *Task) Dirty() bool { return t.dirty.Load() }

// Timer is a pending After callback.
type Timer struct {
	due     time.Time
	seq     uint64
	fn      func()
	index   int
	stopped bool
	sched   *Scheduler
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.stopped || t.index < 0 {
		return false
	}
	t.stopped = true
	heap.Remove(&t.sched.timers, t.index)
	return true
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// FrameID identifies a requested animation frame.
type FrameID uint64

// Options configures a Scheduler.
type Options struct {
	FrameInterval time.Duration
	Start         time.Time
	Logger        *zap.Logger
}

// Scheduler manages frames, timers and render tasks.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[uint32]*Task
	nextID   uint32
	dirty    []*Task
	timers   timerHeap
	timerSeq uint64
	frames   map[FrameID]FrameFunc
	frameSeq FrameID
	posted   []func()
	now      time.Time

	interval time.Duration
	wake     chan struct{}
	running  atomic.Bool
	frameNo  atomic.Uint64

	defaultError ErrorHandler
	logger       *zap.Logger
}

// New creates a scheduler with a virtual clock starting at opts.Start.
func New(opts Options) *Scheduler {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Start.IsZero() {
		opts.Start = time.Unix(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		tasks:    make(map[uint32]*Task),
		nextID:   1,
		dirty:    make([]*Task, 0, 16),
		frames:   make(map[FrameID]FrameFunc),
		now:      opts.Start,
		interval: opts.FrameInterval,
		wake:     make(chan struct{}, 1),
		logger:   opts.Logger,
	}
}

// SetDefaultErrorHandler sets the error handler new tasks inherit.
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.defaultError = handler
}

// Now returns the scheduler clock.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// FrameInterval returns the frame period.
func (s *Scheduler) FrameInterval() time.Duration { return s.interval }

// Frames returns the number of frames executed so far.
func (s *Scheduler) Frames() uint64 { return s.frameNo.Load() }

// CreateTask registers a render task.
func (s *Scheduler) CreateTask(render RenderFunc) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Task{id: s.nextID, render: render, onError: s.defaultError}
	s.nextID++
	s.tasks[t.id] = t
	return t
}

// RemoveTask unregisters a task.
func (s *Scheduler) RemoveTask(task *Task) {
	if task == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, task.id)
}

// TaskCount returns the number of registered tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// MarkDirty queues task to run at the end of the next frame. Marking an
// already dirty task is a no-op.
func (s *Scheduler) MarkDirty(task *Task) {
	if task == nil {
		return
	}
	if !task.dirty.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.dirty = append(s.dirty, task)
	s.mu.Unlock()
	s.signal()
}

// Post hands fn to the loop goroutine. Safe from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
	s.signal()
}

// After runs fn once the clock has advanced by d.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timerSeq++
	t := &Timer{due: s.now.Add(d), seq: s.timerSeq, fn: fn, sched: s}
	heap.Push(&s.timers, t)
	return t
}

// RequestFrame schedules fn for the next frame only.
func (s *Scheduler) RequestFrame(fn FrameFunc) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameSeq++
	s.frames[s.frameSeq] = fn
	return s.frameSeq
}

// CancelFrame drops a pending frame callback.
func (s *Scheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.frames, id)
}

// PendingTimers returns the number of armed timers.
func (s *Scheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush runs posted work and dirty tasks without advancing the clock.
func (s *Scheduler) Flush() {
	s.runPosted()
	s.runDirty()
}

// Advance moves the clock forward by d, one frame interval at a time.
func (s *Scheduler) Advance(d time.Duration) {
	target := s.Now().Add(d)
	for {
		next := s.Now().Add(s.interval)
		if next.After(target) {
			next = target
		}
		s.Frame(next)
		if !next.Before(target) {
			return
		}
	}
}

// Frame executes one frame at timestamp now: posted work, due timers,
// animation-frame callbacks, then dirty render tasks.
func (s *Scheduler) Frame(now time.Time) {
	s.mu.Lock()
	if now.After(s.now) {
		s.now = now
	}
	s.mu.Unlock()
	s.frameNo.Add(1)

	s.runPosted()
	s.runTimers()
	s.runFrames()
	s.runDirty()
}

func (s *Scheduler) runPosted() {
	for {
		s.mu.Lock()
		posted := s.posted
		s.posted = nil
		s.mu.Unlock()
		if len(posted) == 0 {
			return
		}
		for _, fn := range posted {
			s.safeCall("post", fn)
		}
	}
}

func (s *Scheduler) runTimers() {
	for {
		s.mu.Lock()
		if len(s.timers) == 0 || s.timers[0].due.After(s.now) {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.timers).(*Timer)
		t.stopped = true
		s.mu.Unlock()
		s.safeCall("timer", t.fn)
	}
}

func (s *Scheduler) runFrames() {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		return
	}
	ids := make([]FrameID, 0, len(s.frames))
	for id := range s.frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	callbacks := make([]FrameFunc, 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, s.frames[id])
		delete(s.frames, id)
	}
	now := s.now
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn := fn
		s.safeCall("frame", func() { fn(now) })
	}
}

func (s *Scheduler) runDirty() {
	s.mu.Lock()
	batch := s.dirty
	s.dirty = make([]*Task, 0, cap(batch))
	s.mu.Unlock()

	for _, t := range batch {
		s.processTask(t)
	}
}

// processTask runs a single task if it is still dirty and registered.
func (s *Scheduler) processTask(task *Task) {
	if !task.dirty.CompareAndSwap(true, false) {
		return
	}
	s.mu.Lock()
	_, live := s.tasks[task.id]
	s.mu.Unlock()
	if !live {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.handleTaskError(task, r)
		}
	}()
	task.render()
}

// handleTaskError handles a panic during task execution.
func (s *Scheduler) handleTaskError(task *Task, err interface{}) {
	msg := fmt.Sprintf("task %d panic: %v\n%s", task.id, err, debug.Stack())
	s.logger.Error("render task panicked", zap.Uint32("task", task.id), zap.Any("panic", err))

	keep := false
	if task.onError != nil {
		keep = task.onError(task, msg)
	}
	if !keep {
		s.RemoveTask(task)
	}
}

func (s *Scheduler) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled callback panicked", zap.String("kind", kind), zap.Any("panic", r))
		}
	}()
	fn()
}

// Run drives frames from the wall clock until ctx is done. The clock is
// re-based onto wall time on entry.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler: already running")
	}
	defer s.running.Store(false)

	s.mu.Lock()
	base := time.Now()
	offset := s.now.Sub(base)
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("scheduler loop started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler loop stopped")
			return ctx.Err()
		case t := <-ticker.C:
			s.Frame(t.Add(offset))
		case <-s.wake:
			s.Flush()
		}
	}
}

// IsRunning reports whether Run is active.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }
