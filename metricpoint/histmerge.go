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

package metricpoint

import (
	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/number"
)

// mergeHistogramForward folds delta (always a fresh Snapshot(true),
// since both histogram kernels are delta-native) into acc, producing
// the cumulative reading a PreferCumulative reader expects. acc is nil
// on the first collection, in which case delta becomes the initial
// cumulative value.
func mergeHistogramForward(acc, delta aggregation.Aggregation, numKind number.Kind) aggregation.Aggregation {
	if acc == nil {
		return delta
	}
	switch d := delta.(type) {
	case aggregation.ExplicitHistogram:
		a, ok := acc.(aggregation.ExplicitHistogram)
		if !ok {
			return delta
		}
		return mergeExplicit(a, d, numKind)
	case aggregation.ExponentialHistogram:
		a, ok := acc.(aggregation.ExponentialHistogram)
		if !ok {
			return delta
		}
		return mergeExponential(a, d, numKind)
	default:
		return delta
	}
}

func addNumber(a, b number.Number, numKind number.Kind) number.Number {
	if numKind == number.Float64Kind {
		return number.FromFloat64(a.AsFloat64() + b.AsFloat64())
	}
	return number.FromInt64(a.AsInt64() + b.AsInt64())
}

func mergeMinMax(a, b aggregation.Histogram, numKind number.Kind) (bool, number.Number, number.Number) {
	if !a.HasMinMax() && !b.HasMinMax() {
		return false, number.Number(0), number.Number(0)
	}
	if !a.HasMinMax() {
		return true, b.Min(), b.Max()
	}
	if !b.HasMinMax() {
		return true, a.Min(), a.Max()
	}
	min, max := a.Min(), a.Max()
	if numKind == number.Float64Kind {
		if b.Min().AsFloat64() < min.AsFloat64() {
			min = b.Min()
		}
		if b.Max().AsFloat64() > max.AsFloat64() {
			max = b.Max()
		}
		return true, min, max
	}
	if b.Min().AsInt64() < min.AsInt64() {
		min = b.Min()
	}
	if b.Max().AsInt64() > max.AsInt64() {
		max = b.Max()
	}
	return true, min, max
}

// explicitHistogramSnapshot is a standalone aggregation.ExplicitHistogram
// the merge produces; it carries no kernel and is never Updated again.
type explicitHistogramSnapshot struct {
	sum          number.Number
	count        uint64
	hasMinMax    bool
	min, max     number.Number
	boundaries   []float64
	bucketCounts []uint64
}

func (s explicitHistogramSnapshot) Kind() aggregation.Kind    { return aggregation.ExplicitHistogramKind }
func (s explicitHistogramSnapshot) Count() uint64             { return s.count }
func (s explicitHistogramSnapshot) Sum() number.Number        { return s.sum }
func (s explicitHistogramSnapshot) HasMinMax() bool           { return s.hasMinMax }
func (s explicitHistogramSnapshot) Min() number.Number        { return s.min }
func (s explicitHistogramSnapshot) Max() number.Number        { return s.max }
func (s explicitHistogramSnapshot) Boundaries() []float64     { return s.boundaries }
func (s explicitHistogramSnapshot) BucketCounts() []uint64    { return s.bucketCounts }

// mergeExplicit sums bucket-for-bucket: the boundaries come from the
// same view.Config on every collection of a given InstrumentStream, so
// acc and delta always share the same boundary slice length.
func mergeExplicit(acc, delta aggregation.ExplicitHistogram, numKind number.Kind) aggregation.ExplicitHistogram {
	accCounts, deltaCounts := acc.BucketCounts(), delta.BucketCounts()
	n := len(deltaCounts)
	if len(accCounts) > n {
		n = len(accCounts)
	}
	merged := make([]uint64, n)
	for i := 0; i < n; i++ {
		if i < len(accCounts) {
			merged[i] += accCounts[i]
		}
		if i < len(deltaCounts) {
			merged[i] += deltaCounts[i]
		}
	}

	hasMinMax, min, max := mergeMinMax(acc, delta, numKind)
	return explicitHistogramSnapshot{
		sum:          addNumber(acc.Sum(), delta.Sum(), numKind),
		count:        acc.Count() + delta.Count(),
		hasMinMax:    hasMinMax,
		min:          min,
		max:          max,
		boundaries:   delta.Boundaries(),
		bucketCounts: merged,
	}
}

// flatBuckets is a dense, zero-based aggregation.Buckets built from a
// merged index->count map.
type flatBuckets struct {
	offset int32
	counts []uint64
}

func (b flatBuckets) Offset() int32        { return b.offset }
func (b flatBuckets) Len() uint32          { return uint32(len(b.counts)) }
func (b flatBuckets) At(pos uint32) uint64 { return b.counts[pos] }

// downscaleCounts maps every (index, count) pair in b to index>>shift,
// folding collisions together; shift==0 is a no-op copy. This mirrors
// aggregator/histogram's own downscale, which collapses 2**shift
// adjacent indices into one bucket, except here it operates on a flat
// index->count map instead of the kernel's circular backing array,
// since the merge has no live kernel to mutate in place.
func downscaleCounts(b aggregation.Buckets, shift int32) map[int32]uint64 {
	out := make(map[int32]uint64, b.Len())
	for i := uint32(0); i < b.Len(); i++ {
		c := b.At(i)
		if c == 0 {
			continue
		}
		idx := b.Offset() + int32(i)
		if shift > 0 {
			idx >>= shift
		}
		out[idx] += c
	}
	return out
}

func flattenCounts(m map[int32]uint64) flatBuckets {
	if len(m) == 0 {
		return flatBuckets{}
	}
	min, max := int32(0), int32(0)
	first := true
	for idx := range m {
		if first {
			min, max = idx, idx
			first = false
			continue
		}
		if idx < min {
			min = idx
		}
		if idx > max {
			max = idx
		}
	}
	counts := make([]uint64, max-min+1)
	for idx, c := range m {
		counts[idx-min] = c
	}
	return flatBuckets{offset: min, counts: counts}
}

func mergeBucketSides(accSide, deltaSide aggregation.Buckets, accShift, deltaShift int32) flatBuckets {
	merged := downscaleCounts(accSide, accShift)
	for idx, c := range downscaleCounts(deltaSide, deltaShift) {
		merged[idx] += c
	}
	return flattenCounts(merged)
}

type exponentialHistogramSnapshot struct {
	sum       number.Number
	count     uint64
	zeroCount uint64
	hasMinMax bool
	min, max  number.Number
	scale     int32
	positive  flatBuckets
	negative  flatBuckets
}

func (s exponentialHistogramSnapshot) Kind() aggregation.Kind        { return aggregation.ExponentialHistogramKind }
func (s exponentialHistogramSnapshot) Count() uint64                 { return s.count }
func (s exponentialHistogramSnapshot) Sum() number.Number            { return s.sum }
func (s exponentialHistogramSnapshot) HasMinMax() bool               { return s.hasMinMax }
func (s exponentialHistogramSnapshot) Min() number.Number            { return s.min }
func (s exponentialHistogramSnapshot) Max() number.Number            { return s.max }
func (s exponentialHistogramSnapshot) Scale() int32                  { return s.scale }
func (s exponentialHistogramSnapshot) ZeroCount() uint64             { return s.zeroCount }
func (s exponentialHistogramSnapshot) Positive() aggregation.Buckets { return s.positive }
func (s exponentialHistogramSnapshot) Negative() aggregation.Buckets { return s.negative }

// mergeExponential folds delta into acc at whichever of the two scales
// is coarser, since a kernel resets to maxScale after every delta
// Snapshot(true) while the accumulated value may already have been
// downscaled by an earlier, wider-ranging interval; bucket indices are
// only comparable once both sides share one scale.
func mergeExponential(acc, delta aggregation.ExponentialHistogram, numKind number.Kind) aggregation.ExponentialHistogram {
	scale := acc.Scale()
	if delta.Scale() < scale {
		scale = delta.Scale()
	}
	accShift := acc.Scale() - scale
	deltaShift := delta.Scale() - scale

	hasMinMax, min, max := mergeMinMax(acc, delta, numKind)
	return exponentialHistogramSnapshot{
		sum:       addNumber(acc.Sum(), delta.Sum(), numKind),
		count:     acc.Count() + delta.Count(),
		zeroCount: acc.ZeroCount() + delta.ZeroCount(),
		hasMinMax: hasMinMax,
		min:       min,
		max:       max,
		scale:     scale,
		positive:  mergeBucketSides(acc.Positive(), delta.Positive(), accShift, deltaShift),
		negative:  mergeBucketSides(acc.Negative(), delta.Negative(), accShift, deltaShift),
	}
}
