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

// Package refcount implements the reference-counted map-entry
// lifecycle shared by the aggregator store's records: a MetricPoint
// is reachable through the store's map while its count is
// non-negative; it is reclaimed (and must never be touched again)
// once the count is driven to the sentinel math.MinInt32, at which
// point a fresh record must be inserted in its place.
package refcount

import (
	"math"
	"sync/atomic"
)

const reclaimed = int32(math.MinInt32)

// Mapped is an atomic reference count guarding a record's presence
// in a lookup map. Every recorder that reaches a record through the
// map must call Ref before touching it and Unref when done; the
// collector calls TryUnmap to attempt reclamation.
type Mapped struct {
	count int32
}

// Ref attempts to take a reference. It returns false if the record
// has already been reclaimed, in which case the caller must abandon
// it and look up (or create) a fresh record.
func (m *Mapped) Ref() bool {
	for {
		cur := atomic.LoadInt32(&m.count)
		if cur == reclaimed {
			return false
		}
		if atomic.CompareAndSwapInt32(&m.count, cur, cur+1) {
			return true
		}
	}
}

// Unref releases a reference taken by Ref.
func (m *Mapped) Unref() {
	atomic.AddInt32(&m.count, -1)
}

// TryUnmap attempts to transition a record with zero references from
// mapped to reclaimed. It returns false if there are outstanding
// references (a recorder is mid-update) or it is already reclaimed;
// in either case the caller must not remove the record from its map.
func (m *Mapped) TryUnmap() bool {
	return atomic.CompareAndSwapInt32(&m.count, 0, reclaimed)
}

// Reclaimed reports whether the record has been reclaimed.
func (m *Mapped) Reclaimed() bool {
	return atomic.LoadInt32(&m.count) == reclaimed
}
