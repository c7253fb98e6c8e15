package action

import (
	"context"

	"github.com/odvcencio/ripple/stream"
)

// Outcome is the result of a single invocation: a value or an error.
type Outcome[Out any] struct {
	Value Out
	Err   error
}

// Pending resolves with the outcome of one Apply invocation, not the
// action-wide event stream. It is backed by a one-shot replay buffer, so an
// observer attaching after resolution still receives the outcome.
type Pending[Out any] struct {
	results *stream.ReplaySubject[Outcome[Out]]
	done    chan struct{}
	outcome Outcome[Out]
}

func newPending[Out any]() *Pending[Out] {
	return &Pending[Out]{
		results: stream.NewReplaySubject[Outcome[Out]](1),
		done:    make(chan struct{}),
	}
}

func (p *Pending[Out]) resolve(value Out) {
	p.outcome = Outcome[Out]{Value: value}
	p.results.Send(p.outcome)
	p.results.SendCompletion(stream.Finished())
	close(p.done)
}

func (p *Pending[Out]) reject(err error) {
	p.outcome = Outcome[Out]{Err: err}
	p.results.Send(p.outcome)
	p.results.SendCompletion(stream.Finished())
	close(p.done)
}

// Results publishes the single outcome followed by a normal completion.
func (p *Pending[Out]) Results() stream.Publisher[Outcome[Out]] {
	return p.results
}

// Done is closed once the invocation resolved.
func (p *Pending[Out]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the invocation resolves or ctx is done.
func (p *Pending[Out]) Wait(ctx context.Context) (Out, error) {
	select {
	case <-ctx.Done():
		var zero Out
		return zero, ctx.Err()
	case <-p.done:
	}
	return p.outcome.Value, p.outcome.Err
}
