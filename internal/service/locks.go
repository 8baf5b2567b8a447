package service

import "sync"

// keyedMutex provides mutual exclusion per string key.
//
// WHY PER-ENTITY LOCKING?
// Voting and accepting are read-check-mutate sequences: load the current
// state, decide (toggle off? switch direction? unmark the old accepted
// answer?), then write. Two concurrent voters on the SAME question could
// both observe "not voted yet" and corrupt the tally; two concurrent accept
// calls could both win. Serializing per entity closes that window without
// serializing unrelated requests — voters on different questions never wait
// on each other.
//
// Entries are reference-counted and removed when the last holder releases,
// so the map doesn't grow with every entity ever touched.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for key, blocking while another goroutine holds
// it. The returned function releases it.
//
// Usage:
//
//	unlock := locks.Lock("question:" + id)
//	defer unlock()
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
