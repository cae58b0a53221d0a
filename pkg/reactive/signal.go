// Package reactive holds the explorer's observable state cells. Setting a
// cell marks every subscribed render task dirty on the scheduler.
package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
)

// Scheduler is the part of the scheduler the reactive cells need.
type Scheduler interface {
	MarkDirty(task *scheduler.Task)
}

// Signal is the interface for reactive values
type Signal[T any] interface {
	Get() T
	Set(T)
	Subscribe(task *scheduler.Task)
	Unsubscribe(task *scheduler.Task)
}

// State represents a reactive state value
type State[T any] struct {
	value   T
	version atomic.Uint64
	mu      sync.RWMutex

	deps      map[uint32]*scheduler.Task
	depsMu    sync.RWMutex
	listeners []func(T)
	scheduler Scheduler
}

// NewState creates a new reactive state
func NewState[T any](initial T, sched Scheduler) *State[T] {
	return &State[T]{
		value:     initial,
		deps:      make(map[uint32]*scheduler.Task),
		scheduler: sched,
	}
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Version increments on every Set or Update.
func (s *State[T]) Version() uint64 { return s.version.Load() }

// Set updates the value and marks dependent tasks as dirty
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
	s.version.Add(1)
	s.notify(value)
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	value := s.value
	s.mu.Unlock()
	s.version.Add(1)
	s.notify(value)
}

// Watch registers a callback invoked synchronously after every change.
func (s *State[T]) Watch(fn func(T)) {
	s.depsMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.depsMu.Unlock()
}

func (s *State[T]) notify(value T) {
	s.depsMu.RLock()
	deps := make([]*scheduler.Task, 0, len(s.deps))
	for _, task := range s.deps {
		deps = append(deps, task)
	}
	listeners := append([]func(T){}, s.listeners...)
	s.depsMu.RUnlock()

	// Mark tasks dirty outside the lock to avoid deadlock
	for _, task := range deps {
		markDirtyOrBatch(s.scheduler, task)
	}
	for _, fn := range listeners {
		fn(value)
	}
}

// Subscribe adds a task as a dependency
func (s *State[T]) Subscribe(task *scheduler.Task) {
	if task == nil {
		return
	}
	s.depsMu.Lock()
	defer s.depsMu.Unlock()
	s.deps[task.ID()] = task
}

// Unsubscribe removes a task as a dependency
func (s *State[T]) Unsubscribe(task *scheduler.Task) {
	if task == nil {
		return
	}
	s.depsMu.Lock()
	defer s.depsMu.Unlock()
	delete(s.deps, task.ID())
}

// Computed is a memoized value derived from other cells. It recomputes
// lazily after Invalidate.
type Computed[T any] struct {
	compute func() T
	value   T
	valid   bool
	mu      sync.Mutex
}

// NewComputed creates a new computed value
func NewComputed[T any](compute func() T) *Computed[T] {
	return &Computed[T]{compute: compute}
}

// Get returns the computed value, recalculating if necessary
func (c *Computed[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		c.value = c.compute()
		c.valid = true
	}
	return c.value
}

// Invalidate marks the computed value as needing recalculation
func (c *Computed[T]) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// DependsOn invalidates c whenever s changes.
func DependsOn[T, S any](c *Computed[T], s *State[S]) {
	s.Watch(func(S) { c.Invalidate() })
}

// batchContext holds the current batch state
var batchContext atomic.Pointer[Batch]

// Batch allows multiple state updates without triggering re-renders until the batch completes
type Batch struct {
	scheduler  Scheduler
	dirtyTasks map[uint32]*scheduler.Task
	mu         sync.Mutex
	active     bool
}

// NewBatch creates a new batch context
func NewBatch(sched Scheduler) *Batch {
	return &Batch{
		scheduler:  sched,
		dirtyTasks: make(map[uint32]*scheduler.Task),
		active:     true,
	}
}

// Add adds a task to the batch
func (b *Batch) Add(task *scheduler.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active || task == nil {
		return
	}
	b.dirtyTasks[task.ID()] = task
}

// Commit commits all batched updates
func (b *Batch) Commit() {
	b.mu.Lock()
	b.active = false
	tasks := make([]*scheduler.Task, 0, len(b.dirtyTasks))
	for _, task := range b.dirtyTasks {
		tasks = append(tasks, task)
	}
	b.dirtyTasks = nil
	b.mu.Unlock()

	if b.scheduler == nil {
		return
	}
	for _, task := range tasks {
		b.scheduler.MarkDirty(task)
	}
}

// RunBatch executes a function within a batch context
func RunBatch(sched Scheduler, fn func()) {
	batch := NewBatch(sched)
	oldBatch := batchContext.Swap(batch)

	defer func() {
		batchContext.Store(oldBatch)
		batch.Commit()
	}()

	fn()
}

// markDirtyOrBatch marks a task dirty or adds it to the current batch
func markDirtyOrBatch(sched Scheduler, task *scheduler.Task) {
	if batch := batchContext.Load(); batch != nil {
		batch.Add(task)
		return
	}
	if sched != nil {
		sched.MarkDirty(task)
	}
}
