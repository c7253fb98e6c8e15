package stream

import "sync"

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// Property holds a current value and publishes changes, replaying the
// current value to each new subscriber. It is the explicit two-facet form of
// a value/stream pair: Get and Set for the value facet, Subscribe for the
// stream facet. Callers choose which facet they want.
type Property[T any] struct {
	mu      sync.Mutex
	value   T
	equal   EqualFunc[T]
	changes *ReplaySubject[T]
}

// NewProperty creates a property with an initial value.
func NewProperty[T any](initial T) *Property[T] {
	p := &Property[T]{value: initial, changes: NewReplaySubject[T](1)}
	p.changes.Send(initial)
	return p
}

// SetEqualFunc configures the equality check used to suppress redundant
// updates.
func (p *Property[T]) SetEqualFunc(fn EqualFunc[T]) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.equal = fn
	p.mu.Unlock()
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	if p == nil {
		var zero T
		return zero
	}
	p.mu.Lock()
	value := p.value
	p.mu.Unlock()
	return value
}

// Set updates the value and publishes it if it changed.
func (p *Property[T]) Set(value T) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	if p.equal != nil && p.equal(p.value, value) {
		p.mu.Unlock()
		return false
	}
	p.value = value
	p.mu.Unlock()

	p.changes.Send(value)
	return true
}

// Update replaces the value using fn.
// fn runs outside the property lock; Update is not atomic across goroutines.
func (p *Property[T]) Update(fn func(T) T) bool {
	if p == nil || fn == nil {
		return false
	}
	current := p.Get()
	next := fn(current)
	return p.Set(next)
}

// Subscribe attaches sub; it receives the current value first, then every
// subsequent change.
func (p *Property[T]) Subscribe(sub Subscriber[T]) {
	if p == nil {
		return
	}
	p.changes.Subscribe(sub)
}
