package stream

import (
	"sync"

	"github.com/odvcencio/ripple/lifetime"
)

// Sink adapts plain callbacks into a Subscriber. It requests unlimited
// demand on attach, so publishers never park values for it.
type Sink[T any] struct {
	onValue      func(T)
	onCompletion func(Completion)
	scheduler    Scheduler

	mu        sync.Mutex
	sub       Subscription
	cancelled bool
}

// NewSink creates a sink from callbacks. Either callback may be nil.
func NewSink[T any](onValue func(T), onCompletion func(Completion)) *Sink[T] {
	return &Sink[T]{onValue: onValue, onCompletion: onCompletion}
}

// SetScheduler routes callback dispatch through scheduler. Set it before
// subscribing; nil runs callbacks inline.
func (s *Sink[T]) SetScheduler(scheduler Scheduler) {
	if s == nil {
		return
	}
	s.scheduler = scheduler
}

// Attach stores the subscription and requests unlimited demand.
func (s *Sink[T]) Attach(sub Subscription) {
	if s == nil || sub == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.sub = sub
	s.mu.Unlock()
	sub.Request(Unlimited)
}

// Receive dispatches the value callback.
func (s *Sink[T]) Receive(value T) Demand {
	if s == nil || s.onValue == nil {
		return None
	}
	s.dispatch(func() { s.onValue(value) })
	return None
}

// Complete dispatches the completion callback.
func (s *Sink[T]) Complete(c Completion) {
	if s == nil || s.onCompletion == nil {
		return
	}
	s.dispatch(func() { s.onCompletion(c) })
}

// Cancel detaches the sink from its publisher. Idempotent.
func (s *Sink[T]) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

func (s *Sink[T]) dispatch(fn func()) {
	if s.scheduler == nil {
		fn()
		return
	}
	s.scheduler.Schedule(fn)
}

// Observe subscribes a callback sink to p and stores its cancellation in lt,
// so the subscription is torn down when the lifetime ends. If lt already
// ended, the sink is cancelled immediately. Returns the sink for direct
// cancellation.
func Observe[T any](p Publisher[T], lt *lifetime.Lifetime, onValue func(T), onCompletion func(Completion)) *Sink[T] {
	sink := NewSink(onValue, onCompletion)
	if p == nil {
		return sink
	}
	p.Subscribe(sink)
	if lt != nil {
		lt.Store("", sink.Cancel)
	}
	return sink
}
