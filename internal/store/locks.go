package store

import "sync"

// lockRegistry serializes saves per document uuid. Two concurrent saves to
// the same document must not interleave through the save phases; saves to
// different documents proceed independently.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the document lock is held and returns the release
// function. New documents without a uuid yet share one lock key.
func (r *lockRegistry) acquire(documentUUID string) func() {
	if documentUUID == "" {
		documentUUID = "__new__"
	}
	r.mu.Lock()
	l, ok := r.locks[documentUUID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[documentUUID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
