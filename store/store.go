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

// Package store implements AggregatorStore, the cardinality-bounded
// map from attribute.Set to *metricpoint.MetricPoint that backs one
// InstrumentStream (§4.2). Lookups take a read lock and race only
// against other lookups; a miss escalates to a write lock to insert a
// new point, following the same read-then-write-on-miss shape the
// rest of the SDK uses for its synchronous instrument state.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/aggregator"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/exemplar"
	"github.com/northfield-oss/telemetry-core/internal/ratelimit"
	"github.com/northfield-oss/telemetry-core/metricpoint"
	"github.com/northfield-oss/telemetry-core/number"
)

const DefaultCardinalityLimit = 2000

// OverflowKey is the attribute attached to every measurement that
// lands in the overflow point once a stream's cardinality limit is
// reached.
const OverflowKey attribute.Key = "otel.metric.overflow"

var overflowAttrs = attribute.NewMust(attribute.Bool(string(OverflowKey), true))
var overflowFingerprint = overflowAttrs.Fingerprint()

// KernelFactory builds a fresh, empty Kernel for a newly admitted
// attribute set. Store calls it at most once per distinct attribute
// set (ignoring reclamation reuse).
type KernelFactory func() aggregator.Kernel

// ReservoirFactory builds a fresh exemplar reservoir, or returns nil
// if the stream doesn't carry exemplars.
type ReservoirFactory func() exemplar.Reservoir

type chain struct {
	point *metricpoint.MetricPoint
	attrs attribute.Set
	next  *chain
}

// Store is one InstrumentStream's cardinality-bounded aggregation
// table.
type Store struct {
	mu               sync.RWMutex
	byFingerprint    map[uint64]*chain
	cardinalityLimit int
	emitOverflow     bool
	reclaim          bool
	numKind          number.Kind
	newKernel        KernelFactory
	newReservoir     ReservoirFactory

	overflow *metricpoint.MetricPoint

	droppedOnce   *ratelimit.KeyedOnce
	overflowCount uint64
	droppedCount  atomic.Uint64
	rejectedCount atomic.Uint64
}

// New constructs a Store. emitOverflow selects what happens to a
// measurement that arrives once cardinalityLimit distinct attribute
// sets are already mapped: true routes it to the shared overflow
// point (§4.2 step 4), false discards it silently and counts it as
// dropped instead, per the `emitOverflowAttribute` configuration key.
// reclaimUnusedMetricPoints mirrors the configuration key of the same
// name: when true, the pipeline's collection loop calls Reclaim after
// each delta-temporality snapshot to bound memory for attribute sets
// that have gone idle, per §4.2/§6.
func New(numKind number.Kind, cardinalityLimit int, emitOverflow, reclaimUnusedMetricPoints bool, newKernel KernelFactory, newReservoir ReservoirFactory) *Store {
	if cardinalityLimit <= 0 {
		cardinalityLimit = DefaultCardinalityLimit
	}
	return &Store{
		byFingerprint:    make(map[uint64]*chain),
		cardinalityLimit: cardinalityLimit,
		emitOverflow:     emitOverflow,
		reclaim:          reclaimUnusedMetricPoints,
		numKind:          numKind,
		newKernel:        newKernel,
		newReservoir:     newReservoir,
		droppedOnce:      ratelimit.NewKeyedOnce(),
	}
}

// ReclaimEnabled reports whether this store was configured to reclaim
// idle points, per the `reclaimUnusedMetricPoints` configuration key.
// The collection loop checks this before calling Reclaim so a store
// left at its default keeps every point mapped for the life of the
// process, same as before this option existed.
func (s *Store) ReclaimEnabled() bool {
	return s.reclaim
}

// Update routes one measurement to the point for attrs, creating it
// if this is the first measurement seen for that attribute set, or
// to the shared overflow point if the stream's cardinality limit has
// been reached. A negative value offered to a monotonic sum is
// rejected outright per §7: the running total is left untouched and
// the measurement is only counted as a diagnostic, never folded in.
func (s *Store) Update(attrs attribute.Set, v number.Number, weight float64, offer func() exemplar.Exemplar) {
	point := s.acquire(attrs)
	if point == nil {
		// Cardinality limit reached and overflow attribution is
		// disabled: discard silently per §4.2 step 4.
		s.droppedCount.Add(1)
		s.droppedOnce.Do("cardinality-overflow-discard", func() {})
		return
	}
	defer point.RefCount.Unref()

	if point.Kernel.Kind() == aggregation.MonotonicSumKind && s.isNegative(v) {
		s.rejectNegative()
		return
	}
	point.Update(v, weight, offer)
}

// Dropped reports how many measurements were discarded because the
// cardinality limit was reached and emitOverflowAttribute is false.
func (s *Store) Dropped() uint64 {
	return s.droppedCount.Load()
}

func (s *Store) isNegative(v number.Number) bool {
	if s.numKind == number.Float64Kind {
		return v.AsFloat64() < 0
	}
	return v.AsInt64() < 0
}

func (s *Store) rejectNegative() {
	s.rejectedCount.Add(1)
	s.droppedOnce.Do("negative-into-monotonic-sum", func() {})
}

// Rejected reports how many measurements were dropped for offering a
// negative value to a monotonic sum since this store was created.
func (s *Store) Rejected() uint64 {
	return s.rejectedCount.Load()
}

// acquire returns a referenced MetricPoint for attrs, retrying if it
// races a concurrent reclamation, or nil if the measurement should be
// silently dropped (cardinality limit reached, overflow attribution
// disabled).
func (s *Store) acquire(attrs attribute.Set) *metricpoint.MetricPoint {
	for {
		point, ok := s.tryAcquireExisting(attrs)
		if ok {
			return point
		}
		point, retry := s.tryInsert(attrs)
		if !retry {
			return point
		}
		// A concurrent insert or reclamation raced us; loop and
		// try again rather than busy-spin on a tight CPU loop.
	}
}

func (s *Store) tryAcquireExisting(attrs attribute.Set) (*metricpoint.MetricPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.byFingerprint[attrs.Fingerprint()]
	for c != nil {
		if c.attrs.Equals(attrs) {
			if c.point.RefCount.Ref() {
				return c.point, true
			}
			return nil, false
		}
		c = c.next
	}
	return nil, false
}

// tryInsert returns (point, false) on a definitive outcome (a fresh
// point, an existing/overflow point, or a deliberate drop) and
// (nil, true) when the caller should retry because it lost a race.
func (s *Store) tryInsert(attrs attribute.Set) (*metricpoint.MetricPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := attrs.Fingerprint()
	for c := s.byFingerprint[fp]; c != nil; c = c.next {
		if c.attrs.Equals(attrs) {
			if c.point.RefCount.Ref() {
				return c.point, false
			}
			return nil, true
		}
	}

	nonOverflow := len(s.byFingerprint)
	if s.overflow != nil {
		nonOverflow--
	}
	if nonOverflow >= s.cardinalityLimit && fp != overflowFingerprint {
		if !s.emitOverflow {
			return nil, false
		}
		return s.acquireOverflowLocked(), false
	}

	point := s.newPoint(attrs)
	point.RefCount.Ref()
	s.byFingerprint[fp] = &chain{point: point, attrs: attrs, next: s.byFingerprint[fp]}
	return point, false
}

func (s *Store) acquireOverflowLocked() *metricpoint.MetricPoint {
	s.overflowCount++
	s.droppedOnce.Do("cardinality-overflow", func() {
		// Rate-limited to once per stream. The Store holds no
		// logger, so nothing is written here; overflow is visible
		// through OverflowCount.
	})
	if s.overflow == nil {
		s.overflow = s.newPoint(overflowAttrs)
		s.byFingerprint[overflowFingerprint] = &chain{point: s.overflow, attrs: overflowAttrs}
	}
	s.overflow.RefCount.Ref()
	return s.overflow
}

func (s *Store) newPoint(attrs attribute.Set) *metricpoint.MetricPoint {
	var r exemplar.Reservoir
	if s.newReservoir != nil {
		r = s.newReservoir()
	}
	return metricpoint.New(attrs, s.newKernel(), r, s.numKind)
}

// CollectedPoint pairs a snapshot with the attribute set it belongs
// to, the shape MetricPipeline hands the exporter.
type CollectedPoint struct {
	Attrs      attribute.Set
	Aggregation aggregation.Aggregation
	Exemplars  []exemplar.Exemplar
}

// Collect visits every point with a pending update (or every point,
// if force is set, as ForceFlush requires) and returns a snapshot for
// each. outputDelta selects cumulative vs. delta temporality. Histogram
// kernels are always snapshotted delta-native; for cumulative output
// the MetricPoint merges each delta forward into a running total,
// per §4.3/§4.4.
func (s *Store) Collect(outputDelta, force bool) []CollectedPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CollectedPoint
	for _, c := range s.byFingerprint {
		if !c.point.RefCount.Ref() {
			continue
		}
		agg := c.point.Collect(outputDelta, force)
		c.point.RefCount.Unref()
		if agg == nil {
			continue
		}
		cp := CollectedPoint{Attrs: c.attrs, Aggregation: agg}
		if c.point.Reservoir != nil {
			cp.Exemplars = c.point.Reservoir.Collect()
		}
		out = append(out, cp)
	}
	return out
}

// Reclaim attempts to remove points whose status is NoCollectPending
// and which hold no outstanding references (§4.2), bounding memory for
// delta-temporality streams whose attribute sets churn over time. A
// point with an uncollected update is left mapped even at zero
// references, so a straggler Update immediately followed by Reclaim
// can never be lost. It holds the write lock and Collect holds the
// read lock, so Collect never observes a half-removed chain.
func (s *Store) Reclaim() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := 0
	for fp, head := range s.byFingerprint {
		var prev *chain
		for c := head; c != nil; {
			next := c.next
			if c.point != s.overflow && c.point.Idle() && c.point.RefCount.TryUnmap() {
				reclaimed++
				if prev == nil {
					head = next
				} else {
					prev.next = next
				}
			} else {
				prev = c
			}
			c = next
		}
		if head == nil {
			delete(s.byFingerprint, fp)
		} else {
			s.byFingerprint[fp] = head
		}
	}
	return reclaimed
}

// OverflowCount reports how many measurements have been routed to
// the shared overflow point since this store was created.
func (s *Store) OverflowCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overflowCount
}

// Len reports the number of distinct attribute sets currently mapped,
// including the overflow point if one has been created.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFingerprint)
}
