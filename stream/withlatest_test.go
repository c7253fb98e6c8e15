package stream

import (
	"errors"
	"testing"
)

func TestWithLatest_DropsSignalsBeforeFirstSample(t *testing.T) {
	signal := NewSubject[int]()
	sampled := NewSubject[string]()

	rec := newRecorder[Pair[int, string]]()
	WithLatest[int, string](signal, sampled).Subscribe(rec)

	signal.Send(1)
	if len(rec.values) != 0 {
		t.Fatalf("expected no output before first sample, got %v", rec.values)
	}

	sampled.Send("a")
	signal.Send(2)
	signal.Send(3)
	sampled.Send("b")
	signal.Send(4)

	want := []Pair[int, string]{
		{Signal: 2, Latest: "a"},
		{Signal: 3, Latest: "a"},
		{Signal: 4, Latest: "b"},
	}
	if len(rec.values) != len(want) {
		t.Fatalf("expected %d pairs, got %d: %v", len(want), len(rec.values), rec.values)
	}
	for i, p := range want {
		if rec.values[i] != p {
			t.Fatalf("expected %v at position %d, got %v", p, i, rec.values[i])
		}
	}
}

func TestWithLatest_SignalTerminationPropagates(t *testing.T) {
	boom := errors.New("boom")
	signal := NewSubject[int]()
	sampled := NewSubject[string]()

	rec := newRecorder[Pair[int, string]]()
	WithLatest[int, string](signal, sampled).Subscribe(rec)

	sampled.Send("a")
	signal.Send(1)
	signal.SendCompletion(Fail(boom))

	if len(rec.completions) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(rec.completions))
	}
	if !errors.Is(rec.completions[0].Err(), boom) {
		t.Fatalf("expected signal failure to propagate, got %v", rec.completions[0].Err())
	}
}

func TestWithLatest_SampledTerminationIgnored(t *testing.T) {
	signal := NewSubject[int]()
	sampled := NewSubject[string]()

	rec := newRecorder[Pair[int, string]]()
	WithLatest[int, string](signal, sampled).Subscribe(rec)

	sampled.Send("a")
	sampled.SendCompletion(Finished())
	signal.Send(1)

	if len(rec.completions) != 0 {
		t.Fatalf("expected sampled completion to be ignored, got %v", rec.completions)
	}
	if len(rec.values) != 1 || rec.values[0] != (Pair[int, string]{Signal: 1, Latest: "a"}) {
		t.Fatalf("expected pairing with last sample, got %v", rec.values)
	}
}

type countingPublisher[T any] struct {
	inner      *Subject[T]
	subscribes int
}

func (p *countingPublisher[T]) Subscribe(sub Subscriber[T]) {
	p.subscribes++
	p.inner.Subscribe(sub)
}

func TestWithLatest_AttachesOnFirstRequest(t *testing.T) {
	signal := &countingPublisher[int]{inner: NewSubject[int]()}
	sampled := &countingPublisher[string]{inner: NewSubject[string]()}

	rec := &recorder[Pair[int, string]]{initial: None}
	WithLatest[int, string](signal, sampled).Subscribe(rec)

	if signal.subscribes != 0 || sampled.subscribes != 0 {
		t.Fatalf("expected no upstream attach before demand, got %d/%d",
			signal.subscribes, sampled.subscribes)
	}

	rec.sub.Request(Unlimited)
	if signal.subscribes != 1 || sampled.subscribes != 1 {
		t.Fatalf("expected upstream attach after first request, got %d/%d",
			signal.subscribes, sampled.subscribes)
	}
}

func TestWithLatest_CancelTearsDownUpstreams(t *testing.T) {
	signal := NewSubject[int]()
	sampled := NewSubject[string]()

	rec := newRecorder[Pair[int, string]]()
	WithLatest[int, string](signal, sampled).Subscribe(rec)

	sampled.Send("a")
	rec.sub.Cancel()
	signal.Send(1)

	if len(rec.values) != 0 {
		t.Fatalf("expected no values after cancel, got %v", rec.values)
	}
}
