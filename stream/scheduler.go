package stream

import "sync"

// Scheduler dispatches sink callbacks.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

// Schedule dispatches fn using the wrapped function.
func (f SchedulerFunc) Schedule(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// Direct runs each callback inline, on whatever goroutine delivered the
// value.
var Direct Scheduler = SchedulerFunc(func(fn func()) {
	if fn != nil {
		fn()
	}
})

// Async hands each callback its own goroutine.
type Async struct{}

// Schedule dispatches fn asynchronously.
func (Async) Schedule(fn func()) {
	if fn == nil {
		return
	}
	go fn()
}

// Queue parks callbacks until the owning goroutine flushes them. Sinks that
// mutate loop-owned state schedule through a Queue and the loop calls Flush
// once per iteration, keeping delivery off producer goroutines.
type Queue struct {
	mu     sync.Mutex
	parked []func()
}

// NewQueue creates a queue with nothing parked.
func NewQueue() *Queue {
	return new(Queue)
}

// Schedule parks fn until the next Flush.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.parked = append(q.parked, fn)
	q.mu.Unlock()
}

// Flush runs the parked callbacks in the order they were scheduled and
// reports how many ran. A callback scheduled during a flush waits for the
// next one.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	parked := q.parked
	q.parked = nil
	q.mu.Unlock()
	for _, fn := range parked {
		fn()
	}
	return len(parked)
}
