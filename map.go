// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chainmap is a hash table that resolves collisions with separate
// chaining. See https://en.wikipedia.org/wiki/Hash_table#Separate_chaining.
//
// # Layout
//
// A Map is an array of buckets. Each bucket is a slice of slots holding a key
// and a value. A key lives in bucket hash(key)%len(buckets). Colliding keys
// coexist in the same bucket and are found by a linear scan comparing keys
// with ==. The order of slots within a bucket carries no meaning: deletion
// swaps the last slot of the bucket into the hole.
//
// # Growth
//
// The bucket array starts out empty and is allocated by the first Put or
// Entry call. Before every Put and Entry the load factor is checked, and if
// used > 3*len(buckets)/4 (integer division) the bucket array is doubled and
// every entry is rehashed into the new array. Because the array doubles, the
// total rehashing work across n insertions is O(n). The bucket array never
// shrinks; deletion only removes slots from their bucket.
//
// Lookups (Get, Contains, Delete) never grow the map. A lookup against a map
// whose bucket array has not been allocated yet finds nothing.
//
// # Hashing
//
// By default keys are hashed with hash/maphash.Comparable using a per-map
// seed. A different hash function can be provided with WithHash. The only
// requirement on a hash function is that equal keys produce equal hashes.
//
// A Map is NOT goroutine-safe.
package chainmap

import (
	"fmt"
	"iter"
	"strings"
)

const (
	debug = false

	// The map grows when used > loadFactorNum*len(buckets)/loadFactorDen.
	loadFactorNum = 3
	loadFactorDen = 4
)

// Slot holds a key and value.
type Slot[K comparable, V any] struct {
	key   K
	value V
}

// MakeSlot returns a Slot holding key and value. Used with FromSlots.
func MakeSlot[K comparable, V any](key K, value V) Slot[K, V] {
	return Slot[K, V]{key: key, value: value}
}

// Key returns the key held by the slot.
func (s Slot[K, V]) Key() K {
	return s.key
}

// Value returns the value held by the slot.
func (s Slot[K, V]) Value() V {
	return s.value
}

// Map is an unordered map from keys to values with Put, Get, Delete, Entry and
// All operations. Collisions are resolved by chaining: every bucket is a slice
// of slots whose keys all hash to that bucket.
//
// The zero value of a Map is an empty map ready to use. Constructing a Map
// does not allocate a bucket array; that happens on the first insertion.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	// The hash function for keys of type K. Nil until the first growth of a
	// map which was not configured with WithHash, at which point the default
	// maphash based function is installed.
	hash HashFunc[K]
	// The allocator to use for the bucket array. Nil means the default
	// allocator.
	allocator Allocator[K, V]
	// buckets is either empty (never grown) or has a power of 2 length.
	buckets [][]Slot[K, V]
	// The number of filled slots across all buckets (i.e. the number of
	// elements in the map).
	used int
}

// New constructs a new, empty Map. No bucket array is allocated until the
// first Put or Entry.
func New[K comparable, V any](options ...option[K, V]) *Map[K, V] {
	m := &Map[K, V]{}
	m.Init(options...)
	return m
}

// Init initializes a Map with the specified options, dropping any existing
// entries. Init can be used to reuse a Map value without allocating a new one.
func (m *Map[K, V]) Init(options ...option[K, V]) {
	*m = Map[K, V]{}
	for _, op := range options {
		op.apply(m)
	}
}

// Close releases the bucket array back to the map's allocator. It is
// unnecessary to close a map using the default allocator. The map is empty
// after Close and may be used again. Close is idempotent.
func (m *Map[K, V]) Close() {
	if m.buckets != nil {
		for i := range m.buckets {
			clear(m.buckets[i])
		}
		m.alloc().FreeBuckets(m.buckets)
	}
	m.buckets = nil
	m.used = 0
}

// Clear deletes all entries from the map, retaining the bucket array.
func (m *Map[K, V]) Clear() {
	for i := range m.buckets {
		clear(m.buckets[i])
		m.buckets[i] = m.buckets[i][:0]
	}
	m.used = 0
	m.checkInvariants()
}

// Put inserts an entry into the map, overwriting the value of an existing
// entry with the same key. If an entry was overwritten Put returns its
// previous value and replaced=true.
func (m *Map[K, V]) Put(key K, value V) (prev V, replaced bool) {
	m.maybeGrow()

	i := m.bucketIndex(key)
	b := &m.buckets[i]
	if debug {
		fmt.Printf("put(%v): bucket=%d chain=%d\n", key, i, len(*b))
	}

	for j := range *b {
		s := &(*b)[j]
		if key == s.key {
			if debug {
				fmt.Printf("put(updating): bucket=%d index=%d key=%v\n", i, j, key)
			}
			prev, s.value = s.value, value
			m.checkInvariants()
			return prev, true
		}
	}

	*b = append(*b, Slot[K, V]{key: key, value: value})
	m.used++
	m.checkInvariants()
	return prev, false
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if s := m.find(key); s != nil {
		return s.value, true
	}
	return value, false
}

// Contains reports whether the map holds an entry for key.
func (m *Map[K, V]) Contains(key K) bool {
	return m.find(key) != nil
}

// MustGet returns the value for key. It panics if the key is not present and
// is meant for callers that have already established the key's presence.
func (m *Map[K, V]) MustGet(key K) V {
	s := m.find(key)
	if s == nil {
		panic(fmt.Sprintf("chainmap: no entry found for key %v", key))
	}
	return s.value
}

// Delete deletes the entry corresponding to the specified key from the map,
// returning its value and ok=true. It is a noop to delete a non-existent key,
// in which case ok=false.
func (m *Map[K, V]) Delete(key K) (value V, ok bool) {
	if len(m.buckets) == 0 {
		return value, false
	}
	i := m.bucketIndex(key)
	for j := range m.buckets[i] {
		if m.buckets[i][j].key == key {
			return m.deleteAt(i, j), true
		}
	}
	if debug {
		fmt.Printf("delete(%v): not-found bucket=%d\n", key, i)
	}
	return value, false
}

// deleteAt removes slot j of bucket i by moving the last slot of the bucket
// into its place.
func (m *Map[K, V]) deleteAt(i uint64, j int) V {
	b := m.buckets[i]
	value := b[j].value
	last := len(b) - 1
	b[j] = b[last]
	b[last] = Slot[K, V]{}
	m.buckets[i] = b[:last]
	m.used--
	if debug {
		fmt.Printf("delete: bucket=%d index=%d used=%d\n", i, j, m.used)
	}
	m.checkInvariants()
	return value
}

// All returns an iterator over every key and value in the map. Entries are
// produced in bucket order, which is unrelated to insertion order and changes
// whenever the map grows or entries are deleted. The map must not be mutated
// while iterating.
//
//	for k, v := range m.All() {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.buckets {
			for _, s := range m.buckets[i] {
				if !yield(s.key, s.value) {
					return
				}
			}
		}
	}
}

// Keys returns an iterator over the keys in the map, in the same order as All.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over the values in the map, in the same order as
// All.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.used
}

// IsEmpty reports whether the map has no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.used == 0
}

// Collect builds a Map from a sequence of key/value pairs by calling Put for
// each pair. Later pairs overwrite earlier pairs with an equal key.
func Collect[K comparable, V any](seq iter.Seq2[K, V], options ...option[K, V]) *Map[K, V] {
	m := New(options...)
	for k, v := range seq {
		m.Put(k, v)
	}
	return m
}

// FromSlots builds a Map from the given slots, see Collect.
func FromSlots[K comparable, V any](slots ...Slot[K, V]) *Map[K, V] {
	return Collect(func(yield func(K, V) bool) {
		for _, s := range slots {
			if !yield(s.key, s.value) {
				return
			}
		}
	})
}

// find returns the slot holding key, or nil if the key is not present.
func (m *Map[K, V]) find(key K) *Slot[K, V] {
	// NB: a map that has never grown has no buckets (and possibly no hash
	// function) so there is nothing to find.
	if len(m.buckets) == 0 {
		return nil
	}
	i := m.bucketIndex(key)
	b := m.buckets[i]
	for j := range b {
		if b[j].key == key {
			return &b[j]
		}
	}
	if debug {
		fmt.Printf("find(%v): not-found bucket=%d chain=%d\n", key, i, len(b))
	}
	return nil
}

// bucketIndex returns the index of the bucket key belongs to. The bucket
// array must not be empty.
func (m *Map[K, V]) bucketIndex(key K) uint64 {
	return m.hash(key) % uint64(len(m.buckets))
}

// needsGrowth reports whether the next insertion must be preceded by a
// growth of the bucket array.
func (m *Map[K, V]) needsGrowth() bool {
	n := len(m.buckets)
	return n == 0 || m.used > loadFactorNum*n/loadFactorDen
}

// maybeGrow doubles the bucket array if the load factor has been exceeded.
// Called at the start of Put and Entry.
func (m *Map[K, V]) maybeGrow() {
	if !m.needsGrowth() {
		return
	}
	newBuckets := 1
	if n := len(m.buckets); n > 0 {
		newBuckets = 2 * n
	}
	m.resize(newBuckets)
}

// resize allocates a bucket array with newBuckets buckets, moves every entry
// of the current array into the bucket its key hashes to under the new size,
// and discards the old array. Nothing observes the map between the start and
// end of resize.
func (m *Map[K, V]) resize(newBuckets int) {
	if m.hash == nil {
		m.hash = defaultHash[K]()
	}

	oldBuckets := m.buckets
	if debug {
		fmt.Printf("resize: buckets=%d->%d used=%d\n", len(oldBuckets), newBuckets, m.used)
	}

	buckets := m.alloc().AllocBuckets(newBuckets)
	for i := range oldBuckets {
		for _, s := range oldBuckets[i] {
			j := m.hash(s.key) % uint64(newBuckets)
			buckets[j] = append(buckets[j], s)
		}
		// Drop the old bucket's references so the moved keys and values are
		// reachable only from the new array.
		clear(oldBuckets[i])
	}
	m.buckets = buckets

	if oldBuckets != nil {
		m.alloc().FreeBuckets(oldBuckets)
	}
	if debug {
		fmt.Print(m.debugString())
	}
	m.checkInvariants()
}

func (m *Map[K, V]) alloc() Allocator[K, V] {
	if m.allocator == nil {
		return defaultAllocator[K, V]{}
	}
	return m.allocator
}

// Stats describes the shape of a Map.
type Stats struct {
	Len          int
	Buckets      int
	EmptyBuckets int
	MaxChain     int
	LoadFactor   float64
}

// Stats returns statistics about the bucket array of the map.
func (m *Map[K, V]) Stats() Stats {
	s := Stats{
		Len:     m.used,
		Buckets: len(m.buckets),
	}
	for i := range m.buckets {
		n := len(m.buckets[i])
		if n == 0 {
			s.EmptyBuckets++
		}
		s.MaxChain = max(s.MaxChain, n)
	}
	if s.Buckets > 0 {
		s.LoadFactor = float64(s.Len) / float64(s.Buckets)
	}
	return s
}

// validate checks the structural invariants of the map:
//
//   - the bucket array is empty or has a power of 2 length
//   - every key lives in the bucket its hash selects
//   - no key appears twice
//   - used equals the number of stored entries
func (m *Map[K, V]) validate() error {
	n := len(m.buckets)
	if n&(n-1) != 0 {
		return fmt.Errorf("bucket count %d is not a power of 2", n)
	}
	if n == 0 {
		if m.used != 0 {
			return fmt.Errorf("used=%d with no buckets", m.used)
		}
		return nil
	}

	seen := make(map[K]uint64, m.used)
	var count int
	for i := range m.buckets {
		for j, s := range m.buckets[i] {
			if want := m.bucketIndex(s.key); want != uint64(i) {
				return fmt.Errorf("key %v at bucket=%d index=%d, expected bucket %d",
					s.key, i, j, want)
			}
			if prev, ok := seen[s.key]; ok {
				return fmt.Errorf("key %v duplicated in buckets %d and %d", s.key, prev, i)
			}
			seen[s.key] = uint64(i)
			count++
		}
	}
	if count != m.used {
		return fmt.Errorf("found %d entries, but used=%d\n%s", count, m.used, m.debugString())
	}
	return nil
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if err := m.validate(); err != nil {
			panic(err)
		}
	}
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "used=%d buckets=%d\n", m.used, len(m.buckets))
	for i := range m.buckets {
		if len(m.buckets[i]) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  %d:", i)
		for _, s := range m.buckets[i] {
			fmt.Fprintf(&buf, " %v=%v", s.key, s.value)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
