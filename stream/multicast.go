package stream

import "sync"

const (
	eventValue = iota
	eventCompletion
	eventAttach
)

type event[T any] struct {
	kind       int
	value      T
	completion Completion
	sub        *multicastSubscription[T]
}

// multicast is the shared engine behind Subject and ReplaySubject. Sends,
// completions, and attachments are serialized through a pending-event queue
// with a single drainer, so every observer sees one total order of events and
// a send issued from inside a receive callback cannot deadlock the subject.
type multicast[T any] struct {
	mu         sync.Mutex
	draining   bool
	events     []event[T]
	subs       []*multicastSubscription[T]
	replay     int // -1 none, 0 unbounded, >0 last n values
	buffer     []T
	completion *Completion
}

// enqueue appends ev and drains the queue unless another goroutine already
// is. Events enqueued re-entrantly from a receive callback are picked up by
// the active drainer.
func (m *multicast[T]) enqueue(ev event[T]) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	for len(m.events) > 0 {
		next := m.events[0]
		m.events = m.events[1:]
		m.mu.Unlock()
		m.apply(next)
		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}

// apply runs on the drainer only. It mutates subject state under the lock but
// always releases it before touching a subscriber.
func (m *multicast[T]) apply(ev event[T]) {
	switch ev.kind {
	case eventValue:
		m.mu.Lock()
		if m.completion != nil {
			m.mu.Unlock()
			return
		}
		if m.replay >= 0 {
			m.buffer = append(m.buffer, ev.value)
			if m.replay > 0 && len(m.buffer) > m.replay {
				m.buffer = m.buffer[len(m.buffer)-m.replay:]
			}
		}
		subs := make([]*multicastSubscription[T], len(m.subs))
		copy(subs, m.subs)
		m.mu.Unlock()
		for _, s := range subs {
			s.deliver(ev.value)
		}

	case eventCompletion:
		m.mu.Lock()
		if m.completion != nil {
			m.mu.Unlock()
			return
		}
		c := ev.completion
		m.completion = &c
		subs := m.subs
		m.subs = nil
		m.mu.Unlock()
		for _, s := range subs {
			s.deliverCompletion(c)
		}

	case eventAttach:
		m.mu.Lock()
		buffered := make([]T, len(m.buffer))
		copy(buffered, m.buffer)
		var final *Completion
		if m.completion != nil {
			c := *m.completion
			final = &c
		} else {
			m.subs = append(m.subs, ev.sub)
		}
		m.mu.Unlock()
		ev.sub.replay(buffered, final)
	}
}

func (m *multicast[T]) subscribe(dest Subscriber[T]) {
	s := &multicastSubscription[T]{m: m, dest: dest}
	dest.Attach(s)
	m.enqueue(event[T]{kind: eventAttach, sub: s})
}

func (m *multicast[T]) removeSub(sub *multicastSubscription[T]) {
	m.mu.Lock()
	for i, s := range m.subs {
		if s == sub {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// multicastSubscription tracks one subscriber's outstanding demand. Every
// value, whether replayed or live, passes through the outbox and leaves it
// only via drain, whose delivering flag admits one deliverer at a time. A
// value therefore can never overtake one parked earlier, and the recorded
// completion waits until the outbox empties.
type multicastSubscription[T any] struct {
	m    *multicast[T]
	dest Subscriber[T]

	mu         sync.Mutex
	demand     Demand
	outbox     []T
	final      *Completion
	done       bool
	delivering bool
}

// Request adds n to the outstanding demand and forwards withheld values.
func (s *multicastSubscription[T]) Request(n Demand) {
	s.drain(n)
}

// Cancel detaches the subscriber and drops withheld values.
func (s *multicastSubscription[T]) Cancel() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.outbox = nil
	s.mu.Unlock()
	s.m.removeSub(s)
}

// drain adds demand and forwards queued values in order while demand lasts.
// If another goroutine is already mid-delivery the added demand is left for
// it to consume; the demand check and the delivering handoff share one lock
// section, so no wakeup is lost.
func (s *multicastSubscription[T]) drain(add Demand) {
	s.mu.Lock()
	s.demand = s.demand.add(add)
	if s.delivering || s.done {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for {
		if len(s.outbox) > 0 && s.demand > None {
			v := s.outbox[0]
			s.outbox = s.outbox[1:]
			s.demand--
			s.mu.Unlock()
			more := s.dest.Receive(v)
			s.mu.Lock()
			s.demand = s.demand.add(more)
			if s.done {
				break
			}
			continue
		}
		if len(s.outbox) == 0 && s.final != nil {
			c := *s.final
			s.done = true
			s.mu.Unlock()
			s.dest.Complete(c)
			s.mu.Lock()
		}
		break
	}
	s.delivering = false
	s.mu.Unlock()
}

func (s *multicastSubscription[T]) deliver(v T) {
	s.mu.Lock()
	if s.done || s.final != nil {
		s.mu.Unlock()
		return
	}
	s.outbox = append(s.outbox, v)
	s.mu.Unlock()
	s.drain(None)
}

func (s *multicastSubscription[T]) deliverCompletion(c Completion) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.final = &c
	s.mu.Unlock()
	s.drain(None)
}

// replay seeds the outbox with buffered history and, for a subject that
// already completed, the terminal event.
func (s *multicastSubscription[T]) replay(buffered []T, final *Completion) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.outbox = append(s.outbox, buffered...)
	if final != nil {
		s.final = final
	}
	s.mu.Unlock()
	s.drain(None)
}
