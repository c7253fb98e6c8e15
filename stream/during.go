package stream

import (
	"sync"

	"github.com/odvcencio/ripple/lifetime"
)

// During scopes upstream to lt: when the lifetime ends, the downstream
// subscriber receives a normal completion and the upstream subscription is
// cancelled, even if upstream keeps producing. Subscribing after the
// lifetime already ended completes immediately with no values. Upstream's
// own termination, normal or failed, passes through unchanged.
func During[T any](lt *lifetime.Lifetime, upstream Publisher[T]) Publisher[T] {
	return during[T]{lt: lt, upstream: upstream}
}

type during[T any] struct {
	lt       *lifetime.Lifetime
	upstream Publisher[T]
}

func (d during[T]) Subscribe(sub Subscriber[T]) {
	if sub == nil {
		return
	}
	d.attach(sub)
}

func (d during[T]) attach(sub Subscriber[T]) *duringConn[T] {
	if d.lt.HasEnded() || d.upstream == nil {
		sub.Attach(deadSubscription{})
		sub.Complete(Finished())
		return nil
	}
	c := &duringConn[T]{dest: sub, lt: d.lt}
	sub.Attach(c)
	d.upstream.Subscribe(duringTap[T]{c})
	c.setEndID(d.lt.OnEnded("", c.end))
	return c
}

// deadSubscription is attached when the stream terminates before producing.
type deadSubscription struct{}

func (deadSubscription) Request(Demand) {}
func (deadSubscription) Cancel()        {}

type duringConn[T any] struct {
	dest Subscriber[T]
	lt   *lifetime.Lifetime

	mu         sync.Mutex
	done       bool // terminal event delivered (or cancelled)
	ending     bool // lifetime ended while a value was in flight
	delivering bool
	endID      string
	upstream   Subscription
	pending    Demand
}

// setEndID records the lifetime registration backing end so it can be
// released once the connection terminates on its own. If the connection
// already finished, the registration is released on the spot.
func (c *duringConn[T]) setEndID(id string) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		c.lt.Remove(id)
		return
	}
	c.endID = id
	c.mu.Unlock()
}

// unregister drops the end-observer registration from the lifetime after a
// natural completion or a cancel, so finished connections do not pile up on
// a long-lived lifetime. The removed callback no-ops against done.
func (c *duringConn[T]) unregister() {
	c.mu.Lock()
	id := c.endID
	c.endID = ""
	c.mu.Unlock()
	if id != "" {
		c.lt.Remove(id)
	}
}

// Request forwards demand upstream, parking it until the upstream
// subscription is attached.
func (c *duringConn[T]) Request(n Demand) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	up := c.upstream
	if up == nil {
		c.pending = c.pending.add(n)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	up.Request(n)
}

func (c *duringConn[T]) Cancel() {
	c.mu.Lock()
	if c.done || c.ending {
		c.mu.Unlock()
		return
	}
	c.done = true
	up := c.upstream
	c.upstream = nil
	c.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
	c.unregister()
}

// end fires when the lifetime ends. It releases the upstream subscription
// and completes downstream normally; if a value delivery is in flight the
// completion waits for it so downstream never hears a value after its
// terminal event. A late callback after natural completion is a no-op.
func (c *duringConn[T]) end() {
	c.mu.Lock()
	if c.done || c.ending {
		c.mu.Unlock()
		return
	}
	c.ending = true
	up := c.upstream
	c.upstream = nil
	finishNow := !c.delivering
	if finishNow {
		c.done = true
	}
	c.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
	if finishNow {
		c.dest.Complete(Finished())
	}
}

type duringTap[T any] struct {
	c *duringConn[T]
}

func (t duringTap[T]) Attach(s Subscription) {
	c := t.c
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		s.Cancel()
		return
	}
	c.upstream = s
	pending := c.pending
	c.pending = None
	c.mu.Unlock()
	if pending > None {
		s.Request(pending)
	}
}

func (t duringTap[T]) Receive(v T) Demand {
	c := t.c
	c.mu.Lock()
	if c.done || c.ending {
		c.mu.Unlock()
		return None
	}
	c.delivering = true
	c.mu.Unlock()
	more := c.dest.Receive(v)
	c.mu.Lock()
	c.delivering = false
	finish := c.ending && !c.done
	if finish {
		c.done = true
	}
	c.mu.Unlock()
	if finish {
		c.dest.Complete(Finished())
		return None
	}
	return more
}

func (t duringTap[T]) Complete(comp Completion) {
	c := t.c
	c.mu.Lock()
	if c.done || c.ending {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.upstream = nil
	c.mu.Unlock()
	c.dest.Complete(comp)
	c.unregister()
}
