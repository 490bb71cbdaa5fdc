// Copyright The OpenTelemetry Authors
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

package attribute

import (
	"sort"

	"github.com/northfield-oss/telemetry-core/errs"
	"github.com/northfield-oss/telemetry-core/internal/fprint"
)

// Set is a canonical, hashable multiset of key/value pairs. It is
// sorted by key, de-duplicated (last write wins), and carries a
// fingerprint computed once at construction time. A Set is immutable
// once constructed.
type Set struct {
	kvs fpSlice
	fp  uint64
}

type fpSlice []KeyValue

// Empty is the canonical zero-attribute Set, used by the store's
// pre-allocated zero-tag MetricPoint.
var Empty = Set{}

// New copies pairs, sorts by key, drops entries whose value is an
// empty string, drops duplicate keys keeping the last occurrence, and
// computes a fingerprint. It rejects empty keys.
func New(pairs ...KeyValue) (Set, error) {
	if len(pairs) == 0 {
		return Empty, nil
	}

	cp := make([]KeyValue, len(pairs))
	copy(cp, pairs)

	for _, kv := range cp {
		if kv.Key == "" {
			return Set{}, errs.ErrInvalidAttribute
		}
	}

	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Key < cp[j].Key })

	// De-duplicate, keeping the last occurrence of each key; drop
	// empty-string values (an empty value removes the key).
	out := cp[:0:0]
	for i := 0; i < len(cp); {
		j := i
		for j+1 < len(cp) && cp[j+1].Key == cp[i].Key {
			j++
		}
		last := cp[j]
		if !last.Value.IsEmptyString() {
			out = append(out, last)
		}
		i = j + 1
	}

	return Set{kvs: out, fp: fingerprint(out)}, nil
}

// NewMust is New without the error return, for call sites that have
// already validated their keys (e.g. internal sentinel attribute
// sets). It panics on invalid input.
func NewMust(pairs ...KeyValue) Set {
	s, err := New(pairs...)
	if err != nil {
		panic(err)
	}
	return s
}

func fingerprint(kvs []KeyValue) uint64 {
	var fp uint64
	for _, kv := range kvs {
		fp = fprint.Mix(fp, fprint.String(string(kv.Key)), valueFingerprint(kv.Value))
	}
	return fp
}

func valueFingerprint(v Value) uint64 {
	switch v.Type() {
	case BOOL:
		return fprint.Bool(v.AsBool())
	case INT64:
		return fprint.Int64(v.AsInt64())
	case FLOAT64:
		return fprint.Float64(v.AsFloat64())
	case STRING:
		return fprint.String(v.AsString())
	case BOOLSLICE:
		var fp uint64
		for _, b := range v.AsBoolSlice() {
			fp = fprint.Mix(fp, fprint.Bool(b))
		}
		return fp
	case INT64SLICE:
		var fp uint64
		for _, i := range v.AsInt64Slice() {
			fp = fprint.Mix(fp, fprint.Int64(i))
		}
		return fp
	case FLOAT64SLICE:
		var fp uint64
		for _, f := range v.AsFloat64Slice() {
			fp = fprint.Mix(fp, fprint.Float64(f))
		}
		return fp
	case STRINGSLICE:
		var fp uint64
		for _, s := range v.AsStringSlice() {
			fp = fprint.Mix(fp, fprint.String(s))
		}
		return fp
	}
	return 0
}

// Fingerprint returns the 64-bit fingerprint cached at construction.
func (s Set) Fingerprint() uint64 { return s.fp }

// Len returns the number of key/value pairs in the set.
func (s Set) Len() int { return len(s.kvs) }

// Get returns the value for key and whether it was present.
func (s Set) Get(key Key) (Value, bool) {
	// kvs is sorted; binary search would do, but sets are small
	// (attribute cardinality per measurement is expected to be
	// single digits), so linear scan keeps this branch-predictable.
	for _, kv := range s.kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return Value{}, false
}

// Equals reports structural equality: same keys, in the same order
// (guaranteed by New's sort), with equal values.
func (s Set) Equals(o Set) bool {
	if s.fp != o.fp {
		return false
	}
	if len(s.kvs) != len(o.kvs) {
		return false
	}
	for i := range s.kvs {
		if s.kvs[i].Key != o.kvs[i].Key {
			return false
		}
		if !s.kvs[i].Value.Equal(o.kvs[i].Value) {
			return false
		}
	}
	return true
}

// ToSlice returns the set's key/value pairs in sorted order. The
// returned slice must not be mutated by the caller.
func (s Set) ToSlice() []KeyValue {
	return s.kvs
}

// Iter returns an iterator over the set's key/value pairs in sorted
// order.
func (s Set) Iter() *Iterator {
	return &Iterator{kvs: s.kvs, idx: -1}
}

// Iterator walks a Set's key/value pairs in key-sorted order.
type Iterator struct {
	kvs []KeyValue
	idx int
}

func (it *Iterator) Next() bool {
	it.idx++
	return it.idx < len(it.kvs)
}

func (it *Iterator) Attribute() KeyValue {
	return it.kvs[it.idx]
}

func (it *Iterator) Len() int {
	return len(it.kvs)
}
