package registry

import (
	"encoding/binary"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// numShards is the number of shards. Power of two.
const numShards = 64

// ObserverID identifies one observer connection.
type ObserverID = uuid.UUID

// Key is an (object, observer) pair.
type Key[O comparable] struct {
	Object   O
	Observer ObserverID
}

// Entry is one registry entry, as returned by Snapshot.
type Entry[O comparable, V any] struct {
	Key   Key[O]
	Value V
}

// Hasher maps an object to a shard hash.
type Hasher[O comparable] func(O) uint32

type shard[O comparable, V any] struct {
	mu sync.RWMutex
	m  map[O]map[ObserverID]V
}

// Registry is a concurrent map of (object, observer) to V.
// The zero value is not usable; create with New.
type Registry[O comparable, V any] struct {
	hash   Hasher[O]
	shards [numShards]shard[O, V]
}

// New creates a registry that shards objects with hash.
func New[O comparable, V any](hash Hasher[O]) *Registry[O, V] {
	r := &Registry[O, V]{hash: hash}
	for i := range r.shards {
		r.shards[i].m = make(map[O]map[ObserverID]V)
	}
	return r
}

func (r *Registry[O, V]) shardFor(object O) *shard[O, V] {
	return &r.shards[r.hash(object)%numShards]
}

// Get returns the value for (object, observer).
func (r *Registry[O, V]) Get(object O, observer ObserverID) (V, bool) {
	sh := r.shardFor(object)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	v, ok := sh.m[object][observer]
	return v, ok
}

// Set stores v for (object, observer) and returns the previous value.
func (r *Registry[O, V]) Set(object O, observer ObserverID, v V) (prev V, had bool) {
	sh := r.shardFor(object)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	byObserver := sh.m[object]
	if byObserver == nil {
		byObserver = make(map[ObserverID]V)
		sh.m[object] = byObserver
	}
	prev, had = byObserver[observer]
	byObserver[observer] = v
	return prev, had
}

// Delete removes (object, observer) and returns the removed value.
func (r *Registry[O, V]) Delete(object O, observer ObserverID) (prev V, had bool) {
	sh := r.shardFor(object)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	byObserver := sh.m[object]
	prev, had = byObserver[observer]
	if !had {
		return prev, false
	}
	delete(byObserver, observer)
	if len(byObserver) == 0 {
		delete(sh.m, object)
	}
	return prev, true
}

// Observers returns the observers that have an entry for object.
func (r *Registry[O, V]) Observers(object O) map[ObserverID]V {
	sh := r.shardFor(object)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make(map[ObserverID]V, len(sh.m[object]))
	for obs, v := range sh.m[object] {
		out[obs] = v
	}
	return out
}

// RemoveObject removes every entry of object and returns them.
func (r *Registry[O, V]) RemoveObject(object O) map[ObserverID]V {
	sh := r.shardFor(object)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	removed := sh.m[object]
	delete(sh.m, object)
	return removed
}

// RemoveObserver removes every entry of observer and returns them.
func (r *Registry[O, V]) RemoveObserver(observer ObserverID) map[O]V {
	removed := make(map[O]V)
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for object, byObserver := range sh.m {
			v, ok := byObserver[observer]
			if !ok {
				continue
			}
			removed[object] = v
			delete(byObserver, observer)
			if len(byObserver) == 0 {
				delete(sh.m, object)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// ForObserver returns every entry of observer without removing them.
func (r *Registry[O, V]) ForObserver(observer ObserverID) map[O]V {
	out := make(map[O]V)
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for object, byObserver := range sh.m {
			if v, ok := byObserver[observer]; ok {
				out[object] = v
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// Snapshot returns all entries. Shards are read one at a time, so the
// result is not an atomic view under concurrent writes.
func (r *Registry[O, V]) Snapshot() []Entry[O, V] {
	var out []Entry[O, V]
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for object, byObserver := range sh.m {
			for obs, v := range byObserver {
				out = append(out, Entry[O, V]{Key: Key[O]{Object: object, Observer: obs}, Value: v})
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// Len returns the number of entries.
func (r *Registry[O, V]) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, byObserver := range sh.m {
			n += len(byObserver)
		}
		sh.mu.RUnlock()
	}
	return n
}

// Clear removes all entries.
func (r *Registry[O, V]) Clear() {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		sh.m = make(map[O]map[ObserverID]V)
		sh.mu.Unlock()
	}
}

// HashInt32 is a Hasher for integer object IDs.
func HashInt32(v int32) uint32 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	h := fnv.New32a()
	h.Write(b[:])
	return h.Sum32()
}

// HashInt32s hashes several integers, e.g. block coordinates.
func HashInt32s(vs ...int32) uint32 {
	h := fnv.New32a()
	var b [4]byte
	for _, v := range vs {
		binary.BigEndian.PutUint32(b[:], uint32(v))
		h.Write(b[:])
	}
	return h.Sum32()
}
