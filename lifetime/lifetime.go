// Package lifetime tracks the scope during which a resource stays valid and
// runs registered teardown actions when that scope ends.
package lifetime

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

type entry struct {
	id  string
	run func()
}

// Token owns the teardown actions registered against a Lifetime. The object
// that defines the scope keeps the token, usually as a struct field, and
// cancels it when the scope ends.
type Token struct {
	mu        sync.Mutex
	ended     bool
	observers []entry
	stored    []entry
}

// Lifetime is the observable side of a Token. Dependents register teardown
// through the lifetime; only the token's owner can end it.
type Lifetime struct {
	token *Token
}

// Make returns a fresh lifetime and the token that ends it.
func Make() (*Lifetime, *Token) {
	t := &Token{}
	return &Lifetime{token: t}, t
}

// Persistent is a shared lifetime that never ends.
var Persistent = func() *Lifetime {
	lt, _ := Make()
	return lt
}()

// Ended is a shared lifetime that has already ended. Registrations against it
// run immediately.
var Ended = func() *Lifetime {
	lt, token := Make()
	token.Cancel()
	return lt
}()

// Cancel ends the lifetime and runs every registered action exactly once:
// first the end observers in registration order, then the stored cancel
// handles in registration order. Calling it again is a no-op. Safe to call
// from multiple goroutines.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.ended = true
	observers := t.observers
	stored := t.stored
	t.observers = nil
	t.stored = nil
	t.mu.Unlock()

	for _, e := range observers {
		if e.run != nil {
			e.run()
		}
	}
	for _, e := range stored {
		if e.run != nil {
			e.run()
		}
	}
}

// HasEnded reports whether the token was cancelled. Once true it stays true.
func (t *Token) HasEnded() bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	ended := t.ended
	t.mu.Unlock()
	return ended
}

// register adds an entry to one of the two segments. End observers run ahead
// of stored cancel handles regardless of when either was registered. If the
// token already ended, the action runs immediately instead.
func (t *Token) register(id string, run func(), observer bool) string {
	if id == "" {
		id = ulid.Make().String()
	}
	if t == nil {
		if run != nil {
			run()
		}
		return id
	}
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		if run != nil {
			run()
		}
		return id
	}
	if observer {
		t.observers = append(t.observers, entry{id: id, run: run})
	} else {
		t.stored = append(t.stored, entry{id: id, run: run})
	}
	t.mu.Unlock()
	return id
}

func (t *Token) contains(id string) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.observers {
		if e.id == id {
			return true
		}
	}
	for _, e := range t.stored {
		if e.id == id {
			return true
		}
	}
	return false
}

func removeEntry(entries []entry, id string) ([]entry, func()) {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...), e.run
		}
	}
	return entries, nil
}

func (t *Token) remove(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	var run func()
	t.observers, run = removeEntry(t.observers, id)
	if run == nil {
		t.stored, run = removeEntry(t.stored, id)
	}
	t.mu.Unlock()
	if run != nil {
		run()
	}
}

// OnEnded registers fn to run when the lifetime ends. End observers run in
// registration order, ahead of every handle registered via Store. If id is
// empty a ULID is generated. Duplicate ids are allowed. Returns the id.
//
// If the lifetime already ended, fn runs synchronously before OnEnded
// returns.
func (l *Lifetime) OnEnded(id string, fn func()) string {
	if l == nil {
		if fn != nil {
			fn()
		}
		return id
	}
	return l.token.register(id, fn, true)
}

// Store registers a cancel handle to run when the lifetime ends, after all
// end observers. If id is empty a ULID is generated. Duplicate ids are
// allowed. Returns the id.
//
// If the lifetime already ended, cancel runs synchronously before Store
// returns.
func (l *Lifetime) Store(id string, cancel func()) string {
	if l == nil {
		if cancel != nil {
			cancel()
		}
		return id
	}
	return l.token.register(id, cancel, false)
}

// Contains reports whether a registration with the given id is still pending.
func (l *Lifetime) Contains(id string) bool {
	if l == nil {
		return false
	}
	return l.token.contains(id)
}

// Remove drops the first registration with the given id and runs its action
// immediately.
func (l *Lifetime) Remove(id string) {
	if l == nil {
		return
	}
	l.token.remove(id)
}

// HasEnded reports whether the lifetime ended. Once true it stays true.
func (l *Lifetime) HasEnded() bool {
	if l == nil {
		return true
	}
	return l.token.HasEnded()
}
