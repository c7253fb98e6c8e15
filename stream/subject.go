package stream

// ReplaySubject multicasts values to any number of subscribers and replays
// buffered history to late ones. A buffer size of 0 keeps every value;
// otherwise only the last bufferSize values are retained.
//
// ReplaySubject implements no backpressure towards its callers: Send never
// blocks. Per-subscriber demand still gates delivery, with undelivered values
// parked until the subscriber requests more.
type ReplaySubject[T any] struct {
	m multicast[T]
}

// NewReplaySubject creates a subject retaining the last bufferSize values, or
// every value if bufferSize is 0.
func NewReplaySubject[T any](bufferSize int) *ReplaySubject[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &ReplaySubject[T]{m: multicast[T]{replay: bufferSize}}
}

// Send buffers value and forwards it to every attached subscriber. Values
// sent after a completion are dropped. Sending with no subscribers attached
// still buffers for later replay.
func (s *ReplaySubject[T]) Send(value T) {
	if s == nil {
		return
	}
	s.m.enqueue(event[T]{kind: eventValue, value: value})
}

// SendCompletion terminates the stream. The first completion wins; later ones
// are dropped. Future subscribers receive the buffered values followed by
// this completion.
func (s *ReplaySubject[T]) SendCompletion(c Completion) {
	if s == nil {
		return
	}
	s.m.enqueue(event[T]{kind: eventCompletion, completion: c})
}

// Subscribe attaches sub, replays the buffered values in emission order, then
// keeps forwarding live values until completion or cancellation.
func (s *ReplaySubject[T]) Subscribe(sub Subscriber[T]) {
	if s == nil || sub == nil {
		return
	}
	s.m.subscribe(sub)
}

// Subject multicasts values to currently attached subscribers without
// replaying history. A subscriber attaching after completion receives the
// terminal event immediately.
type Subject[T any] struct {
	m multicast[T]
}

// NewSubject creates an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{m: multicast[T]{replay: -1}}
}

// Send forwards value to every attached subscriber. Values sent after a
// completion are dropped.
func (s *Subject[T]) Send(value T) {
	if s == nil {
		return
	}
	s.m.enqueue(event[T]{kind: eventValue, value: value})
}

// SendCompletion terminates the stream. The first completion wins.
func (s *Subject[T]) SendCompletion(c Completion) {
	if s == nil {
		return
	}
	s.m.enqueue(event[T]{kind: eventCompletion, completion: c})
}

// Subscribe attaches sub for live values only.
func (s *Subject[T]) Subscribe(sub Subscriber[T]) {
	if s == nil || sub == nil {
		return
	}
	s.m.subscribe(sub)
}
