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

package histogram

import (
	"sort"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/internal/spinlock"
	"github.com/northfield-oss/telemetry-core/number"
)

// ExplicitKernel implements a fixed-boundary histogram. Boundaries
// are shared read-only configuration from the view; only the bucket
// counts, sum, count, min, and max are mutable per §4.3.
type ExplicitKernel[N number.Any] struct {
	lock       spinlock.Lock
	traits     number.Traits[N]
	boundaries []float64
	recordMinMax bool

	sum       N
	count     uint64
	min       N
	max       N
	minMaxSet bool
	buckets   []uint64
}

// NewExplicit constructs a kernel over the given sorted, de-duplicated
// boundaries; there are len(boundaries)+1 buckets, the first ending at
// boundaries[0] and the last starting at boundaries[len-1].
func NewExplicit[N number.Any](traits number.Traits[N], boundaries []float64, recordMinMax bool) *ExplicitKernel[N] {
	b := make([]float64, len(boundaries))
	copy(b, boundaries)
	sort.Float64s(b)
	return &ExplicitKernel[N]{
		traits:       traits,
		boundaries:   b,
		recordMinMax: recordMinMax,
		buckets:      make([]uint64, len(b)+1),
	}
}

func (k *ExplicitKernel[N]) Kind() aggregation.Kind { return aggregation.ExplicitHistogramKind }

// findBucket returns the index of the bucket a value falls into. For
// the small boundary counts views typically configure (a handful to
// a few dozen), linear scan beats a binary search in practice; beyond
// that crossover a binary search keeps Update from becoming the
// bottleneck on a hot recording path.
func findBucket(boundaries []float64, value float64) int {
	const linearScanThreshold = 49
	if len(boundaries) <= linearScanThreshold {
		for i, bound := range boundaries {
			if value <= bound {
				return i
			}
		}
		return len(boundaries)
	}
	return sort.Search(len(boundaries), func(i int) bool { return value <= boundaries[i] })
}

func (k *ExplicitKernel[N]) Update(v number.Number) {
	value := k.traits.FromNumber(v)
	fvalue := float64(value)

	k.lock.Acquire()
	defer k.lock.Release()

	k.count++
	k.sum += value

	// NaN/±Inf accumulate into count and sum but never into a bucket
	// or min/max, per §9.
	if k.traits.IsNaN(value) || k.traits.IsInf(value) {
		return
	}

	if k.recordMinMax {
		if !k.minMaxSet {
			k.min, k.max = value, value
			k.minMaxSet = true
		} else {
			if value < k.min {
				k.min = value
			}
			if value > k.max {
				k.max = value
			}
		}
	}
	k.buckets[findBucket(k.boundaries, fvalue)]++
}

func (k *ExplicitKernel[N]) Snapshot(reset bool) aggregation.Aggregation {
	k.lock.Acquire()
	defer k.lock.Release()

	counts := make([]uint64, len(k.buckets))
	copy(counts, k.buckets)
	snap := explicitSnapshot{
		sum:          k.traits.ToNumber(k.sum),
		count:        k.count,
		hasMinMax:    k.recordMinMax && k.minMaxSet,
		min:          k.traits.ToNumber(k.min),
		max:          k.traits.ToNumber(k.max),
		boundaries:   k.boundaries,
		bucketCounts: counts,
	}

	if reset {
		k.sum = *new(N)
		k.count = 0
		k.min = *new(N)
		k.max = *new(N)
		k.minMaxSet = false
		for i := range k.buckets {
			k.buckets[i] = 0
		}
	}
	return snap
}

type explicitSnapshot struct {
	sum          number.Number
	count        uint64
	hasMinMax    bool
	min, max     number.Number
	boundaries   []float64
	bucketCounts []uint64
}

var _ aggregation.ExplicitHistogram = explicitSnapshot{}

func (s explicitSnapshot) Kind() aggregation.Kind   { return aggregation.ExplicitHistogramKind }
func (s explicitSnapshot) Count() uint64            { return s.count }
func (s explicitSnapshot) Sum() number.Number       { return s.sum }
func (s explicitSnapshot) HasMinMax() bool          { return s.hasMinMax }
func (s explicitSnapshot) Min() number.Number       { return s.min }
func (s explicitSnapshot) Max() number.Number       { return s.max }
func (s explicitSnapshot) Boundaries() []float64    { return s.boundaries }
func (s explicitSnapshot) BucketCounts() []uint64   { return s.bucketCounts }
