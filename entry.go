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

// Entry is a view of a single key of a Map, either occupied by an existing
// entry or vacant. It is returned by Map.Entry and consumed by one of
// OrInsert, OrInsertWith or OrDefault. An Entry is invalidated by any other
// mutation of its Map.
type Entry[K comparable, V any] struct {
	m   *Map[K, V]
	key K
	// The bucket the key belongs to.
	bucket uint64
	// The index of the key's slot in the bucket, or -1 if the entry is vacant.
	index int
}

// Entry returns the entry for key. The map grows before the lookup if its
// load factor has been exceeded, so that a vacant entry can be filled without
// a further resize.
func (m *Map[K, V]) Entry(key K) Entry[K, V] {
	m.maybeGrow()

	e := Entry[K, V]{m: m, key: key, index: -1}
	e.bucket = m.bucketIndex(key)
	for j := range m.buckets[e.bucket] {
		if m.buckets[e.bucket][j].key == key {
			e.index = j
			break
		}
	}
	return e
}

// Key returns the key of the entry.
func (e Entry[K, V]) Key() K {
	return e.key
}

// Occupied reports whether the map holds an entry for the key.
func (e Entry[K, V]) Occupied() bool {
	return e.index >= 0
}

// OrInsert inserts value if the entry is vacant. It returns a pointer to the
// value stored for the key, which remains valid until the next mutation of
// the map.
//
//	*m.Entry("foo").OrInsert(0) += 1
func (e Entry[K, V]) OrInsert(value V) *V {
	if e.Occupied() {
		return e.slot()
	}
	return e.insert(value)
}

// OrInsertWith is like OrInsert, but the value to insert is produced by
// calling fn. fn is only called if the entry is vacant.
func (e Entry[K, V]) OrInsertWith(fn func() V) *V {
	if e.Occupied() {
		return e.slot()
	}
	return e.insert(fn())
}

// OrDefault is like OrInsert with the zero value of V.
func (e Entry[K, V]) OrDefault() *V {
	var zero V
	return e.OrInsert(zero)
}

func (e Entry[K, V]) slot() *V {
	return &e.m.buckets[e.bucket][e.index].value
}

func (e Entry[K, V]) insert(value V) *V {
	m := e.m
	b := append(m.buckets[e.bucket], Slot[K, V]{key: e.key, value: value})
	m.buckets[e.bucket] = b
	m.used++
	m.checkInvariants()
	return &b[len(b)-1].value
}
