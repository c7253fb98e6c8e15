// Package stream provides demand-aware reactive stream primitives: multicast
// subjects with replay, a value-holding property, sampling and
// lifetime-scoping combinators, and schedulers for callback dispatch.
package stream

import "math"

// Demand is the number of additional values a subscriber is willing to
// receive.
type Demand uint64

const (
	// None requests no additional values.
	None Demand = 0
	// Unlimited demand never runs out.
	Unlimited Demand = math.MaxUint64
)

// add saturates at Unlimited instead of wrapping.
func (d Demand) add(n Demand) Demand {
	if Unlimited-d < n {
		return Unlimited
	}
	return d + n
}

// Completion is the terminal event of a stream: either a normal finish or a
// failure carrying an error.
type Completion struct {
	err    error
	failed bool
}

// Finished returns a normal completion.
func Finished() Completion {
	return Completion{}
}

// Fail returns a failure completion carrying err.
func Fail(err error) Completion {
	return Completion{err: err, failed: true}
}

// Failed reports whether the completion is a failure.
func (c Completion) Failed() bool {
	return c.failed
}

// Err returns the failure error, or nil for a normal completion.
func (c Completion) Err() error {
	return c.err
}

// Subscription is a live attachment between a publisher and a subscriber. It
// is cancellable independently of either side.
type Subscription interface {
	// Request adds n to the subscription's outstanding demand.
	Request(n Demand)
	// Cancel detaches the subscriber. Values withheld for lack of demand are
	// dropped.
	Cancel()
}

// Subscriber consumes a stream of values followed by at most one completion.
type Subscriber[T any] interface {
	// Attach hands the subscriber its subscription before any value arrives.
	Attach(s Subscription)
	// Receive consumes one value and returns additional demand.
	Receive(value T) Demand
	// Complete consumes the terminal event. No value arrives after it.
	Complete(c Completion)
}

// Publisher emits values to attached subscribers.
type Publisher[T any] interface {
	Subscribe(sub Subscriber[T])
}
