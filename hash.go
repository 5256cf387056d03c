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
package chainmap

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// HashFunc computes the 64-bit digest of a key. Equal keys must produce equal
// digests.
type HashFunc[K comparable] func(key K) uint64

// defaultHash returns a HashFunc using Go's builtin hashing for comparable
// types with a freshly generated seed.
func defaultHash[K comparable]() HashFunc[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// StringHash hashes strings with xxHash. It is deterministic across processes
// and agrees with BytesEquivalent, which allows a Map[string,V] created with
// WithHash(StringHash) to be queried with byte slices.
func StringHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Equivalent relates a query type Q to the key type K of a Map. It allows a
// lookup by a representation of the key other than K itself, e.g. querying a
// string-keyed map with a []byte without converting it.
//
// For every query q and key k, Equal(q, k) must imply that Hash(q) equals the
// map's hash of k.
type Equivalent[Q any, K comparable] interface {
	Hash(q Q) uint64
	Equal(q Q, key K) bool
}

// BytesEquivalent queries string keys with byte slices. It is only valid for
// maps using StringHash.
type BytesEquivalent struct{}

// Hash implements Equivalent.
func (BytesEquivalent) Hash(q []byte) uint64 {
	return xxhash.Sum64(q)
}

// Equal implements Equivalent.
func (BytesEquivalent) Equal(q []byte, key string) bool {
	return string(q) == key
}

// findBy returns the bucket index and slot index of the key equivalent to q,
// or ok=false.
func findBy[K comparable, V any, Q any](m *Map[K, V], eq Equivalent[Q, K], q Q) (i uint64, j int, ok bool) {
	if len(m.buckets) == 0 {
		return 0, 0, false
	}
	i = eq.Hash(q) % uint64(len(m.buckets))
	for j := range m.buckets[i] {
		if eq.Equal(q, m.buckets[i][j].key) {
			return i, j, true
		}
	}
	return i, 0, false
}

// GetBy retrieves the value for the key equivalent to q, returning ok=false if
// there is none.
func GetBy[K comparable, V any, Q any](m *Map[K, V], eq Equivalent[Q, K], q Q) (value V, ok bool) {
	i, j, ok := findBy(m, eq, q)
	if !ok {
		return value, false
	}
	return m.buckets[i][j].value, true
}

// ContainsBy reports whether m holds a key equivalent to q.
func ContainsBy[K comparable, V any, Q any](m *Map[K, V], eq Equivalent[Q, K], q Q) bool {
	_, _, ok := findBy(m, eq, q)
	return ok
}

// DeleteBy deletes the entry whose key is equivalent to q, returning its value
// and ok=true. It is a noop if there is no such entry.
func DeleteBy[K comparable, V any, Q any](m *Map[K, V], eq Equivalent[Q, K], q Q) (value V, ok bool) {
	i, j, ok := findBy(m, eq, q)
	if !ok {
		return value, false
	}
	return m.deleteAt(i, j), true
}
