package registry

import "sync"

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex provides one mutex per key. Entries exist only while a key is
// locked or waited on; different keys never contend.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedEntry
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: make(map[K]*keyedEntry)}
}

// Lock locks key and returns the function that unlocks it.
func (km *KeyedMutex[K]) Lock(key K) (unlock func()) {
	km.mu.Lock()
	e := km.locks[key]
	if e == nil {
		e = &keyedEntry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

// Len returns the number of keys currently locked or waited on.
func (km *KeyedMutex[K]) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
