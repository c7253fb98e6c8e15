package stream

import "testing"

func TestProperty_ReplaysCurrentValue(t *testing.T) {
	prop := NewProperty(1)
	prop.Set(2)

	rec := newRecorder[int]()
	prop.Subscribe(rec)
	wantValues(t, rec.values, 2)

	prop.Set(3)
	wantValues(t, rec.values, 2, 3)
}

func TestProperty_GetAndSet(t *testing.T) {
	prop := NewProperty("a")
	if prop.Get() != "a" {
		t.Fatalf("expected initial value, got %q", prop.Get())
	}
	if !prop.Set("b") {
		t.Fatalf("expected set to report change")
	}
	if prop.Get() != "b" {
		t.Fatalf("expected updated value, got %q", prop.Get())
	}
}

func TestProperty_SetEqualFunc(t *testing.T) {
	prop := NewProperty(5)
	prop.SetEqualFunc(EqualComparable[int])

	rec := newRecorder[int]()
	prop.Subscribe(rec)

	if prop.Set(5) {
		t.Fatalf("expected set of equal value to report no change")
	}
	if !prop.Set(6) {
		t.Fatalf("expected set of new value to report change")
	}
	wantValues(t, rec.values, 5, 6)
}

func TestProperty_Update(t *testing.T) {
	prop := NewProperty(1)
	prop.SetEqualFunc(EqualComparable[int])

	if !prop.Update(func(v int) int { return v + 1 }) {
		t.Fatalf("expected update to report change")
	}
	if prop.Get() != 2 {
		t.Fatalf("expected updated value 2, got %d", prop.Get())
	}
	if prop.Update(nil) {
		t.Fatalf("expected nil update to report no change")
	}
}
