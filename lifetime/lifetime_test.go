package lifetime

import (
	"sync"
	"testing"
)

func TestToken_CancelRunsActionsOnce(t *testing.T) {
	lt, token := Make()
	calls := 0

	lt.Store("", func() { calls++ })
	lt.Store("", func() { calls++ })

	token.Cancel()
	if calls != 2 {
		t.Fatalf("expected 2 actions run, got %d", calls)
	}

	token.Cancel()
	if calls != 2 {
		t.Fatalf("expected no extra runs after second cancel, got %d", calls)
	}
}

func TestToken_ObserversRunBeforeStored(t *testing.T) {
	lt, token := Make()
	var order []string

	lt.Store("", func() { order = append(order, "stored-1") })
	lt.OnEnded("", func() { order = append(order, "observer-1") })
	lt.Store("", func() { order = append(order, "stored-2") })
	lt.OnEnded("", func() { order = append(order, "observer-2") })

	token.Cancel()

	want := []string{"observer-1", "observer-2", "stored-1", "stored-2"}
	if len(order) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(order))
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected %q at position %d, got %q", name, i, order[i])
		}
	}
}

func TestLifetime_RegisterAfterEndRunsImmediately(t *testing.T) {
	lt, token := Make()
	token.Cancel()

	calls := 0
	lt.Store("", func() { calls++ })
	if calls != 1 {
		t.Fatalf("expected stored action to run immediately, got %d calls", calls)
	}

	lt.OnEnded("", func() { calls++ })
	if calls != 2 {
		t.Fatalf("expected observer to run immediately, got %d calls", calls)
	}
}

func TestLifetime_ContainsAndRemove(t *testing.T) {
	lt, token := Make()
	calls := 0

	id := lt.Store("teardown", func() { calls++ })
	if id != "teardown" {
		t.Fatalf("expected supplied id back, got %q", id)
	}
	if !lt.Contains("teardown") {
		t.Fatalf("expected registration to be present")
	}

	lt.Remove("teardown")
	if calls != 1 {
		t.Fatalf("expected removal to run the action, got %d calls", calls)
	}
	if lt.Contains("teardown") {
		t.Fatalf("expected registration to be gone")
	}

	token.Cancel()
	if calls != 1 {
		t.Fatalf("expected no rerun on cancel, got %d calls", calls)
	}
}

func TestLifetime_GeneratedIDs(t *testing.T) {
	lt, token := Make()
	defer token.Cancel()

	a := lt.Store("", func() {})
	b := lt.Store("", func() {})
	if a == "" || b == "" {
		t.Fatalf("expected generated ids, got %q and %q", a, b)
	}
	if a == b {
		t.Fatalf("expected distinct generated ids, got %q twice", a)
	}
	if !lt.Contains(a) || !lt.Contains(b) {
		t.Fatalf("expected generated ids to be registered")
	}
}

func TestLifetime_HasEnded(t *testing.T) {
	lt, token := Make()
	if lt.HasEnded() {
		t.Fatalf("expected fresh lifetime to be open")
	}
	token.Cancel()
	if !lt.HasEnded() {
		t.Fatalf("expected lifetime to be ended after cancel")
	}
}

func TestLifetime_Singletons(t *testing.T) {
	if Persistent.HasEnded() {
		t.Fatalf("expected persistent lifetime to stay open")
	}
	if !Ended.HasEnded() {
		t.Fatalf("expected shared ended lifetime to be ended")
	}

	calls := 0
	Ended.Store("", func() { calls++ })
	if calls != 1 {
		t.Fatalf("expected registration on ended lifetime to run, got %d", calls)
	}
}

func TestToken_ConcurrentCancel(t *testing.T) {
	lt, token := Make()

	var mu sync.Mutex
	calls := 0
	for i := 0; i < 10; i++ {
		lt.Store("", func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token.Cancel()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 10 {
		t.Fatalf("expected each action to run exactly once, got %d runs", calls)
	}
}
