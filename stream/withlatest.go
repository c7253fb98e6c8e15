package stream

import "sync"

// Pair couples a signal value with the latest sampled value.
type Pair[S, L any] struct {
	Signal S
	Latest L
}

// WithLatest pairs each value of signal with the most recent value of
// sampled. Signal values arriving before sampled has emitted are dropped.
// Termination of signal propagates downstream and tears down both upstream
// subscriptions; termination of sampled is ignored, keeping the last
// observed value available for pairing.
//
// The returned publisher is lazy: it begins observing both upstreams at the
// first demand request, not at subscribe time.
func WithLatest[S, L any](signal Publisher[S], sampled Publisher[L]) Publisher[Pair[S, L]] {
	return withLatest[S, L]{signal: signal, sampled: sampled}
}

type withLatest[S, L any] struct {
	signal  Publisher[S]
	sampled Publisher[L]
}

func (w withLatest[S, L]) Subscribe(sub Subscriber[Pair[S, L]]) {
	if sub == nil {
		return
	}
	c := &withLatestConn[S, L]{signal: w.signal, sampled: w.sampled, dest: sub}
	sub.Attach(c)
}

type withLatestConn[S, L any] struct {
	signal  Publisher[S]
	sampled Publisher[L]
	dest    Subscriber[Pair[S, L]]

	mu         sync.Mutex
	started    bool
	done       bool
	demand     Demand
	latest     L
	hasLatest  bool
	signalSub  Subscription
	sampledSub Subscription
}

// Request accumulates demand and, on the first nonzero request, attaches to
// both upstreams. The sampled stream attaches first so a synchronous source
// can seed the latest value before the signal stream starts.
func (c *withLatestConn[S, L]) Request(n Demand) {
	c.mu.Lock()
	c.demand = c.demand.add(n)
	start := !c.started && !c.done && c.demand > None
	if start {
		c.started = true
	}
	c.mu.Unlock()
	if start {
		c.sampled.Subscribe(sampledTap[S, L]{c})
		c.signal.Subscribe(signalTap[S, L]{c})
	}
}

func (c *withLatestConn[S, L]) Cancel() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	sig, smp := c.signalSub, c.sampledSub
	c.signalSub, c.sampledSub = nil, nil
	c.mu.Unlock()
	if sig != nil {
		sig.Cancel()
	}
	if smp != nil {
		smp.Cancel()
	}
}

type sampledTap[S, L any] struct {
	c *withLatestConn[S, L]
}

func (t sampledTap[S, L]) Attach(s Subscription) {
	c := t.c
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		s.Cancel()
		return
	}
	c.sampledSub = s
	c.mu.Unlock()
	s.Request(Unlimited)
}

func (t sampledTap[S, L]) Receive(v L) Demand {
	c := t.c
	c.mu.Lock()
	c.latest = v
	c.hasLatest = true
	c.mu.Unlock()
	return None
}

// Complete ignores sampled termination; the sampling source's lifetime is
// decoupled from the signal's.
func (t sampledTap[S, L]) Complete(Completion) {}

type signalTap[S, L any] struct {
	c *withLatestConn[S, L]
}

func (t signalTap[S, L]) Attach(s Subscription) {
	c := t.c
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		s.Cancel()
		return
	}
	c.signalSub = s
	c.mu.Unlock()
	s.Request(Unlimited)
}

func (t signalTap[S, L]) Receive(v S) Demand {
	c := t.c
	c.mu.Lock()
	if c.done || !c.hasLatest || c.demand == None {
		c.mu.Unlock()
		return None
	}
	c.demand--
	pair := Pair[S, L]{Signal: v, Latest: c.latest}
	c.mu.Unlock()
	if more := c.dest.Receive(pair); more > None {
		c.mu.Lock()
		c.demand = c.demand.add(more)
		c.mu.Unlock()
	}
	return None
}

func (t signalTap[S, L]) Complete(comp Completion) {
	c := t.c
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	smp := c.sampledSub
	c.signalSub, c.sampledSub = nil, nil
	c.mu.Unlock()
	if smp != nil {
		smp.Cancel()
	}
	c.dest.Complete(comp)
}
