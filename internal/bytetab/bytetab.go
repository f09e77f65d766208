// Package bytetab provides a hash table keyed by raw byte sequences. It is
// used by the engine to resolve type and field names scanned out of a
// document without allocating intermediate strings.
//
// The layout is two-tiered and optimized for the common case of no hash
// collisions: a hash with a single entry lives in the singles map; the first
// time a second key lands on the same hash, the hash is promoted to a bucket
// slice and removed from the singles map. Lookups always compare the full key
// bytes, never just the hash.
package bytetab

import (
	"fmt"
	"math/bits"
)

const hashSeed = 17

// Hash mixes the key bytes into a bucket index. It is deterministic and has
// no adversarial-input guarantees; it is never exposed on the wire.
func Hash(key []byte) uint32 {
	h := uint32(hashSeed)
	for _, b := range key {
		h = (bits.RotateLeft32(h, 5) ^ uint32(b)) * 16777619
	}
	return h
}

type entry[V any] struct {
	key []byte
	val V
}

// Table maps byte-sequence keys to values. Keys are unique; entries are never
// removed. The zero Table is not ready for use, call New.
type Table[V any] struct {
	singles map[uint32]entry[V]
	buckets map[uint32][]entry[V]
	n       int
}

// New returns an empty table.
func New[V any]() *Table[V] {
	return &Table[V]{
		singles: make(map[uint32]entry[V]),
		buckets: make(map[uint32][]entry[V]),
	}
}

// Len reports the number of entries.
func (t *Table[V]) Len() int { return t.n }

// Add inserts key with the given value. The key bytes are copied. Inserting a
// key that is already present is a programming error and returns a non-nil
// error even when the duplicate arrives through the collision path.
func (t *Table[V]) Add(key []byte, val V) error {
	h := Hash(key)
	kc := make([]byte, len(key))
	copy(kc, key)

	if bucket, ok := t.buckets[h]; ok {
		for _, e := range bucket {
			if bytesEqual(e.key, key) {
				return fmt.Errorf("bytetab: duplicate key %q", key)
			}
		}
		t.buckets[h] = append(bucket, entry[V]{key: kc, val: val})
		t.n++
		return nil
	}
	if e, ok := t.singles[h]; ok {
		if bytesEqual(e.key, key) {
			return fmt.Errorf("bytetab: duplicate key %q", key)
		}
		// Promote: the hash now holds two distinct keys.
		t.buckets[h] = []entry[V]{e, {key: kc, val: val}}
		delete(t.singles, h)
		t.n++
		return nil
	}
	t.singles[h] = entry[V]{key: kc, val: val}
	t.n++
	return nil
}

// MustAdd is Add for registration-time call sites where a duplicate key is a
// fatal programming error.
func (t *Table[V]) MustAdd(key []byte, val V) {
	if err := t.Add(key, val); err != nil {
		panic(err)
	}
}

// TryGetValue looks up key, comparing full key bytes to guard against hash
// collisions.
func (t *Table[V]) TryGetValue(key []byte) (V, bool) {
	h := Hash(key)
	if e, ok := t.singles[h]; ok {
		if bytesEqual(e.key, key) {
			return e.val, true
		}
		var zero V
		return zero, false
	}
	for _, e := range t.buckets[h] {
		if bytesEqual(e.key, key) {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
