// Package action wraps an asynchronous unit of work with enablement gating
// and observable side streams.
package action

import (
	"context"
	"errors"
	"sync"

	"github.com/odvcencio/ripple/lifetime"
	"github.com/odvcencio/ripple/stream"
)

// ErrDisabled reports that an input arrived while the action was disabled or
// already executing. It is recoverable: re-apply once the action re-enables.
var ErrDisabled = errors.New("action: disabled")

// Action runs a unit of work per discrete input. While a run is in flight
// the action is disabled, so a racing second input is rejected rather than
// overlapped; runs may follow each other once the previous one finished and
// the external condition still holds.
//
// Every gating decision and state transition runs as one job on a serialized
// queue, so the flag flips and the Enabled/Executing publishes of a
// transition land together and observers see one consistent interleaving.
type Action[In, Out any] struct {
	work func(context.Context, In) (Out, error)

	mu       sync.Mutex
	jobs     []func()
	draining bool

	// touched only from inside jobs
	externallyOn bool
	running      bool
	closed       bool

	enabled    *stream.Property[bool]
	executing  *stream.Property[bool]
	values     *stream.Subject[Out]
	errs       *stream.Subject[error]
	rejections *stream.Subject[In]

	lt    *lifetime.Lifetime
	token *lifetime.Token
}

// New creates an action that is enabled whenever it is not executing.
func New[In, Out any](work func(context.Context, In) (Out, error)) *Action[In, Out] {
	return newAction(nil, work)
}

// NewEnabledIf creates an action gated by an external boolean stream. The
// action is enabled only while the latest value of enabled is true and no
// run is in flight. Until enabled emits, the action is disabled.
func NewEnabledIf[In, Out any](enabled stream.Publisher[bool], work func(context.Context, In) (Out, error)) *Action[In, Out] {
	return newAction(enabled, work)
}

func newAction[In, Out any](enabledIf stream.Publisher[bool], work func(context.Context, In) (Out, error)) *Action[In, Out] {
	if work == nil {
		work = func(context.Context, In) (Out, error) {
			var zero Out
			return zero, nil
		}
	}
	lt, token := lifetime.Make()
	a := &Action[In, Out]{
		work:         work,
		externallyOn: enabledIf == nil,
		enabled:      stream.NewProperty(enabledIf == nil),
		executing:    stream.NewProperty(false),
		values:       stream.NewSubject[Out](),
		errs:         stream.NewSubject[error](),
		rejections:   stream.NewSubject[In](),
		lt:           lt,
		token:        token,
	}
	a.enabled.SetEqualFunc(stream.EqualComparable[bool])
	a.executing.SetEqualFunc(stream.EqualComparable[bool])

	lt.OnEnded("", func() {
		a.post(func() {
			a.closed = true
			a.enabled.Set(false)
			a.values.SendCompletion(stream.Finished())
			a.errs.SendCompletion(stream.Finished())
			a.rejections.SendCompletion(stream.Finished())
		})
	})

	if enabledIf != nil {
		stream.Observe(enabledIf, lt, func(on bool) {
			a.post(func() {
				a.externallyOn = on
				a.enabled.Set(on && !a.running && !a.closed)
			})
		}, nil)
	}
	return a
}

// post queues one state-transition job and drains the queue unless another
// goroutine already is. Jobs never interleave, so a transition's flag flips
// and property publishes are atomic with respect to every other transition.
// A job posted re-entrantly from a property observer is picked up by the
// active drainer instead of deadlocking.
func (a *Action[In, Out]) post(job func()) {
	a.mu.Lock()
	a.jobs = append(a.jobs, job)
	if a.draining {
		a.mu.Unlock()
		return
	}
	a.draining = true
	for len(a.jobs) > 0 {
		next := a.jobs[0]
		a.jobs = a.jobs[1:]
		a.mu.Unlock()
		next()
		a.mu.Lock()
	}
	a.draining = false
	a.mu.Unlock()
}

// Apply processes one input. The returned handle resolves with this
// invocation's own outcome: ErrDisabled if the action was disabled at the
// moment the input was processed, otherwise the work's result or error.
func (a *Action[In, Out]) Apply(ctx context.Context, in In) *Pending[Out] {
	p := newPending[Out]()
	a.post(func() {
		if a.closed || a.running || !a.externallyOn {
			a.rejections.Send(in)
			p.reject(ErrDisabled)
			return
		}
		a.running = true
		a.executing.Set(true)
		a.enabled.Set(false)
		go a.run(ctx, in, p)
	})
	return p
}

// Send processes one input without a per-call handle; outcomes are visible
// only on the side streams.
func (a *Action[In, Out]) Send(ctx context.Context, in In) {
	a.Apply(ctx, in)
}

func (a *Action[In, Out]) run(ctx context.Context, in In, p *Pending[Out]) {
	out, err := a.work(ctx, in)

	a.post(func() {
		if err != nil {
			a.errs.Send(err)
		} else {
			a.values.Send(out)
		}

		a.running = false
		a.executing.Set(false)
		a.enabled.Set(a.externallyOn && !a.closed)

		// Resolve last so the handle doubles as a barrier: once it
		// resolves, every side stream has seen this invocation's events.
		if err != nil {
			p.reject(err)
		} else {
			p.resolve(out)
		}
	})
}

// Values publishes each successful result.
func (a *Action[In, Out]) Values() stream.Publisher[Out] {
	return a.values
}

// Errors publishes each work failure. Gating rejections never appear here.
func (a *Action[In, Out]) Errors() stream.Publisher[error] {
	return a.errs
}

// Rejections publishes inputs refused while the action was disabled.
func (a *Action[In, Out]) Rejections() stream.Publisher[In] {
	return a.rejections
}

// Enabled is true while the external condition holds and no run is in
// flight. New subscribers receive the current value first.
func (a *Action[In, Out]) Enabled() *stream.Property[bool] {
	return a.enabled
}

// Executing is true while a run is in flight.
func (a *Action[In, Out]) Executing() *stream.Property[bool] {
	return a.executing
}

// Lifetime ends when the action closes.
func (a *Action[In, Out]) Lifetime() *lifetime.Lifetime {
	return a.lt
}

// Close disables the action and completes its side streams. Idempotent. A
// run already in flight still resolves its own handle.
func (a *Action[In, Out]) Close() {
	a.token.Cancel()
}
