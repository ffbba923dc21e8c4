// Package registry holds per-observer highlight state.
//
// A Registry maps (object, observer) pairs to a value. It is sharded by
// object: all observers of one object live in the same shard, so removing
// an object touches one lock, and lookups on the packet path take one
// shard read lock and two map reads.
//
// A KeyedMutex serialises multi-step operations (registry write, team
// packets, forced update) per key without a global lock.
package registry
