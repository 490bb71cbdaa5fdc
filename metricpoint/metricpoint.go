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

// Package metricpoint implements MetricPoint, the unit of aggregation
// state an AggregatorStore maps one attribute set to (§3, §4.2): a
// Kernel carrying the running state, an optional exemplar reservoir,
// a reference count governing the point's lifetime in the store's
// map, and the collect-status bit that decides whether the next
// collection needs to visit this point at all.
package metricpoint

import (
	"sync/atomic"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/aggregator"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/exemplar"
	"github.com/northfield-oss/telemetry-core/internal/refcount"
	"github.com/northfield-oss/telemetry-core/number"
)

// Status tracks whether a point has unread updates since the last
// collection. CollectPending is set by Update and cleared by Collect;
// a store skips points left at NoCollectPending to avoid visiting
// dormant attribute sets every interval.
type Status int32

const (
	NoCollectPending Status = iota
	CollectPending
)

// MetricPoint is one attribute set's aggregation state within a
// single InstrumentStream. It is only ever reached through an
// AggregatorStore's map, which is why Ref/Unref/RefCount exist: they
// let the store reclaim abandoned points without racing a recorder
// that is mid-Update.
type MetricPoint struct {
	Tags attribute.Set

	Kernel    aggregator.Kernel
	Reservoir exemplar.Reservoir
	NumKind   number.Kind

	status   Status32
	RefCount refcount.Mapped

	// deltaLastValue is the previous cumulative reading, used to
	// derive a delta output from a Sum or Gauge kernel (whose
	// running state is always cumulative) without resetting the
	// kernel itself, per §4.4.
	deltaLastValue number.Number

	// histAccum is the cumulative reading synthesized for a histogram
	// kernel, which is always delta-native: every Snapshot(true) gets
	// folded forward into this field so a PreferCumulative reader sees
	// a running total instead of just the latest interval's delta.
	histAccum aggregation.Aggregation
}

// Status32 is an int32 wrapper giving MetricPoint.status atomic
// compare-and-swap semantics without importing sync/atomic at every
// call site.
type Status32 struct {
	v int32
}

func (s *Status32) Load() Status { return Status(atomic.LoadInt32(&s.v)) }

func (s *Status32) Store(v Status) { atomic.StoreInt32(&s.v, int32(v)) }

// MarkPending sets CollectPending unconditionally; Update calls this
// after folding a measurement in, regardless of whether the point was
// already pending.
func (s *Status32) MarkPending() { atomic.StoreInt32(&s.v, int32(CollectPending)) }

// TakePending atomically reads the current status and clears it to
// NoCollectPending, returning whether a collection is owed. Using a
// swap instead of load-then-store closes the race where an Update
// lands between those two steps and would otherwise be silently
// dropped from this collection (its CollectPending write would be
// clobbered by the store): since Update always re-marks pending after
// this swap could have already run, a straggler simply gets picked up
// on the next collection instead of being lost, per the "no update
// ever lost" invariant.
func (s *Status32) TakePending() bool {
	return atomic.SwapInt32(&s.v, int32(NoCollectPending)) == int32(CollectPending)
}

// Idle reports whether the point has no update pending collection.
// A store's reclamation pass uses this alongside a zero reference
// count before removing a point from its map, per §4.2: a point with
// a straggler update it hasn't collected yet must survive.
func (p *MetricPoint) Idle() bool {
	return p.status.Load() == NoCollectPending
}

// New constructs a MetricPoint bound to tags and backed by kernel. A
// nil reservoir is valid; points that don't carry exemplars simply
// skip the offer step.
func New(tags attribute.Set, kernel aggregator.Kernel, reservoir exemplar.Reservoir, numKind number.Kind) *MetricPoint {
	return &MetricPoint{Tags: tags, Kernel: kernel, Reservoir: reservoir, NumKind: numKind}
}

// Update folds one measurement into the running state and marks the
// point pending for the next collection. The caller must hold a
// reference (via RefCount.Ref) for the duration of this call.
func (p *MetricPoint) Update(v number.Number, weight float64, offer func() exemplar.Exemplar) {
	p.Kernel.Update(v)
	p.status.MarkPending()
	if p.Reservoir != nil && offer != nil {
		func() {
			// A panic from the offer closure or the reservoir is
			// recovered here, so the measurement already folded into
			// the kernel stands.
			defer func() { _ = recover() }()
			p.Reservoir.Offer(offer(), weight)
		}()
	}
}

// Collect produces a snapshot honoring outputDelta, or nil if no
// update is pending and the caller should skip this point entirely.
// force bypasses the pending check, used by ForceFlush.
func (p *MetricPoint) Collect(outputDelta, force bool) aggregation.Aggregation {
	pending := p.status.TakePending()
	if !pending && !force {
		return nil
	}

	switch p.Kernel.Kind() {
	case aggregation.MonotonicSumKind, aggregation.NonMonotonicSumKind, aggregation.GaugeKind:
		return p.collectCumulativeNative(outputDelta)
	default:
		// Histograms are delta-native: Snapshot(true) always
		// resets. A delta reader gets that reading as-is; a
		// cumulative reader gets it folded forward into histAccum.
		delta := p.Kernel.Snapshot(true)
		if outputDelta {
			return delta
		}
		p.histAccum = mergeHistogramForward(p.histAccum, delta, p.NumKind)
		return p.histAccum
	}
}

func (p *MetricPoint) collectCumulativeNative(outputDelta bool) aggregation.Aggregation {
	snap := p.Kernel.Snapshot(false)
	if !outputDelta {
		return snap
	}

	switch s := snap.(type) {
	case aggregation.Sum:
		cur := s.Value()
		delta := p.subtract(cur, p.deltaLastValue)
		p.deltaLastValue = cur
		return sumView{kind: s.Kind(), value: delta, monotonic: s.IsMonotonic()}
	case aggregation.Gauge:
		// Gauges report the instantaneous last value regardless
		// of temporality; there is nothing to subtract.
		return s
	default:
		return snap
	}
}

// subtract computes cur-prev according to the point's underlying
// numeric representation, since a Number's bit pattern means nothing
// on its own.
func (p *MetricPoint) subtract(cur, prev number.Number) number.Number {
	if p.NumKind == number.Float64Kind {
		return number.FromFloat64(cur.AsFloat64() - prev.AsFloat64())
	}
	return number.FromInt64(cur.AsInt64() - prev.AsInt64())
}

type sumView struct {
	kind      aggregation.Kind
	value     number.Number
	monotonic bool
}

func (s sumView) Kind() aggregation.Kind { return s.kind }
func (s sumView) Value() number.Number   { return s.value }
func (s sumView) IsMonotonic() bool      { return s.monotonic }
