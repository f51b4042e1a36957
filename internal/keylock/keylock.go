// Package keylock provides a mutex per int64 key, used to serialize work on one order
// while other orders proceed in parallel.
package keylock

import "sync"

// Map hands out one mutex per key. Entries are reference-counted and removed once
// nobody holds or waits on them, so the map only grows with the number of keys in
// use right now. The zero value is not usable; call New.
type Map struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func New() *Map {
	return &Map{locks: make(map[int64]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *Map) Lock(key int64) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len is the number of live entries.
func (k *Map) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
