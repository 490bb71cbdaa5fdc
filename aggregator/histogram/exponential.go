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

// Package histogram implements the explicit-bucket and base-2
// exponential histogram aggregator kernels. Both guard their
// multi-field running state with a single spinlock rather than
// atomics, per §4.3: one Update touches count, sum, min, max, and one
// or more bucket counters together, and must appear atomic as a
// whole.
package histogram

import (
	"fmt"
	"math/bits"

	expmapping "github.com/lightstep/go-expohisto/mapping"
	"github.com/lightstep/go-expohisto/mapping/exponent"
	"github.com/lightstep/go-expohisto/mapping/logarithm"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/internal/spinlock"
	"github.com/northfield-oss/telemetry-core/number"
)

const DefaultMaxScale = 20
const DefaultMaxSize = 160

// buckets holds one side (positive or negative) of the exponential
// histogram's sparse, contiguous bucket range.
type buckets struct {
	counts     []uint64
	indexBase  int32
	indexStart int32
	indexEnd   int32
}

func (b *buckets) Offset() int32 { return b.indexStart }

func (b *buckets) Len() uint32 {
	if len(b.counts) == 0 {
		return 0
	}
	if b.indexEnd == b.indexStart && b.At(0) == 0 {
		return 0
	}
	return uint32(b.indexEnd - b.indexStart + 1)
}

func (b *buckets) At(pos0 uint32) uint64 {
	pos := pos0
	bias := uint32(b.indexBase - b.indexStart)
	if pos < bias {
		pos += uint32(len(b.counts))
	}
	pos -= bias
	return b.counts[pos]
}

func (b *buckets) clear() {
	b.indexStart, b.indexEnd, b.indexBase = 0, 0, 0
	for i := range b.counts {
		b.counts[i] = 0
	}
}

type highLow struct {
	low  int32
	high int32
}

func (h highLow) empty() bool { return h.low > h.high }

func changeScale(hl highLow, size int32) int32 {
	var change int32
	for hl.high-hl.low >= size {
		hl.high >>= 1
		hl.low >>= 1
		change++
	}
	return change
}

// ExponentialKernel implements a base-2 exponential histogram per
// §4.3: scale starts at maxScale and only ever decreases, trading
// resolution for the fixed bucket budget maxSize.
type ExponentialKernel[N number.Any] struct {
	lock     spinlock.Lock
	traits   number.Traits[N]
	maxSize  int32
	maxScale int32

	sum       N
	count     uint64
	zeroCount uint64
	min       N
	max       N
	minMaxSet bool
	positive  buckets
	negative  buckets
	mapping   expmapping.Mapping
}

func NewExponential[N number.Any](traits number.Traits[N], maxSize, maxScale int32) *ExponentialKernel[N] {
	k := &ExponentialKernel[N]{traits: traits, maxSize: maxSize, maxScale: maxScale}
	k.mapping = newMapping(maxScale)
	return k
}

func newMapping(scale int32) expmapping.Mapping {
	var m expmapping.Mapping
	var err error
	if scale <= 0 {
		m, err = exponent.NewMapping(scale)
	} else {
		m, err = logarithm.NewMapping(scale)
	}
	if err != nil {
		panic(fmt.Sprintf("histogram: impossible scale %d: %v", scale, err))
	}
	return m
}

func (k *ExponentialKernel[N]) Kind() aggregation.Kind { return aggregation.ExponentialHistogramKind }

func (k *ExponentialKernel[N]) Update(v number.Number) {
	value := k.traits.FromNumber(v)
	fvalue := float64(value)

	k.lock.Acquire()
	defer k.lock.Release()

	k.count++

	if k.traits.IsNaN(value) || k.traits.IsInf(value) {
		// Irregular values contribute to sum and count so totals
		// stay consistent, but never affect min/max or a bucket.
		k.sum += value
		return
	}
	k.sum += value

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

	if fvalue == 0 {
		k.zeroCount++
		return
	}

	var b *buckets
	if fvalue > 0 {
		b = &k.positive
	} else {
		fvalue = -fvalue
		b = &k.negative
	}
	k.update(b, fvalue)
}

func (k *ExponentialKernel[N]) update(b *buckets, value float64) {
	index := k.mapping.MapToIndex(value)

	hl, ok := k.incrementIndexBy(b, index, 1)
	if ok {
		return
	}

	k.downscale(changeScale(hl, k.maxSize))

	index = k.mapping.MapToIndex(value)
	if _, ok := k.incrementIndexBy(b, index, 1); !ok {
		panic("histogram: downscale logic error")
	}
}

func (k *ExponentialKernel[N]) downscale(change int32) {
	if change < 0 {
		panic(fmt.Sprintf("histogram: impossible change of scale %d", change))
	}
	if change == 0 {
		return
	}
	newScale := k.mapping.Scale() - change
	k.positive.downscale(change)
	k.negative.downscale(change)
	k.mapping = newMapping(newScale)
}

func (k *ExponentialKernel[N]) incrementIndexBy(b *buckets, index int32, incr uint64) (highLow, bool) {
	if b.Len() == 0 {
		if b.counts == nil {
			b.counts = make([]uint64, 1)
		}
		b.indexStart = index
		b.indexEnd = index
		b.indexBase = index
	} else if index < b.indexStart {
		if span := b.indexEnd - index; span >= k.maxSize {
			return highLow{low: index, high: b.indexEnd}, false
		} else if span >= int32(len(b.counts)) {
			k.grow(b, span+1)
		}
		b.indexStart = index
	} else if index > b.indexEnd {
		if span := index - b.indexStart; span >= k.maxSize {
			return highLow{low: b.indexStart, high: index}, false
		} else if span >= int32(len(b.counts)) {
			k.grow(b, span+1)
		}
		b.indexEnd = index
	}

	bucketIndex := index - b.indexBase
	if bucketIndex < 0 {
		bucketIndex += int32(len(b.counts))
	}
	b.counts[bucketIndex] += incr
	return highLow{}, true
}

func (k *ExponentialKernel[N]) grow(b *buckets, needed int32) {
	size := int32(len(b.counts))
	bias := b.indexBase - b.indexStart
	oldPositiveLimit := size - bias
	newSize := int32(1) << (32 - bits.LeadingZeros32(uint32(needed)))
	if newSize > k.maxSize {
		newSize = k.maxSize
	}
	newPositiveLimit := newSize - bias

	tmp := make([]uint64, newSize)
	copy(tmp[newPositiveLimit:], b.counts[oldPositiveLimit:])
	copy(tmp[0:oldPositiveLimit], b.counts[0:oldPositiveLimit])
	b.counts = tmp
}

// downscale first rotates the backing array so indexBase==indexStart,
// then collapses 2**by buckets into one.
func (b *buckets) downscale(by int32) {
	if by == 0 || len(b.counts) == 0 {
		return
	}
	b.rotate()

	size := 1 + b.indexEnd - b.indexStart
	each := int64(1) << by
	inpos := int32(0)
	outpos := int32(0)

	for pos := b.indexStart; pos <= b.indexEnd; {
		mod := int64(pos) % each
		if mod < 0 {
			mod += each
		}
		for i := mod; i < each && inpos < size; i++ {
			if outpos != inpos {
				b.counts[outpos] += b.counts[inpos]
				b.counts[inpos] = 0
			}
			inpos++
			pos++
		}
		outpos++
	}

	b.indexStart >>= by
	b.indexEnd >>= by
	b.indexBase = b.indexStart
}

func (b *buckets) rotate() {
	bias := b.indexBase - b.indexStart
	if bias == 0 {
		return
	}
	b.indexBase = b.indexStart

	reverse(b.counts, 0, int32(len(b.counts)))
	reverse(b.counts, 0, bias)
	reverse(b.counts, bias, int32(len(b.counts)))
}

func reverse(s []uint64, from, limit int32) {
	num := ((from + limit) / 2) - from
	for i := int32(0); i < num; i++ {
		s[from+i], s[limit-i-1] = s[limit-i-1], s[from+i]
	}
}

// Snapshot copies the running state. reset zeroes everything but the
// mapping scale, which returns to maxScale so the next collection
// interval starts at full resolution.
func (k *ExponentialKernel[N]) Snapshot(reset bool) aggregation.Aggregation {
	k.lock.Acquire()
	defer k.lock.Release()

	snap := exponentialSnapshot{
		sum:       k.traits.ToNumber(k.sum),
		count:     k.count,
		zeroCount: k.zeroCount,
		hasMinMax: k.minMaxSet,
		min:       k.traits.ToNumber(k.min),
		max:       k.traits.ToNumber(k.max),
		scale:     k.mapping.Scale(),
		positive:  copyBuckets(&k.positive),
		negative:  copyBuckets(&k.negative),
	}
	if k.count == k.zeroCount {
		snap.scale = 0
	}

	if reset {
		k.sum = *new(N)
		k.count = 0
		k.zeroCount = 0
		k.min = *new(N)
		k.max = *new(N)
		k.minMaxSet = false
		k.positive.clear()
		k.negative.clear()
		k.mapping = newMapping(k.maxScale)
	}
	return snap
}

func copyBuckets(b *buckets) staticBuckets {
	n := b.Len()
	counts := make([]uint64, n)
	for i := uint32(0); i < n; i++ {
		counts[i] = b.At(i)
	}
	return staticBuckets{offset: b.Offset(), counts: counts}
}

type staticBuckets struct {
	offset int32
	counts []uint64
}

func (s staticBuckets) Offset() int32    { return s.offset }
func (s staticBuckets) Len() uint32      { return uint32(len(s.counts)) }
func (s staticBuckets) At(pos uint32) uint64 { return s.counts[pos] }

type exponentialSnapshot struct {
	sum       number.Number
	count     uint64
	zeroCount uint64
	hasMinMax bool
	min, max  number.Number
	scale     int32
	positive  staticBuckets
	negative  staticBuckets
}

var _ aggregation.ExponentialHistogram = exponentialSnapshot{}

func (s exponentialSnapshot) Kind() aggregation.Kind        { return aggregation.ExponentialHistogramKind }
func (s exponentialSnapshot) Count() uint64                 { return s.count }
func (s exponentialSnapshot) Sum() number.Number            { return s.sum }
func (s exponentialSnapshot) HasMinMax() bool                { return s.hasMinMax }
func (s exponentialSnapshot) Min() number.Number            { return s.min }
func (s exponentialSnapshot) Max() number.Number            { return s.max }
func (s exponentialSnapshot) Scale() int32                  { return s.scale }
func (s exponentialSnapshot) ZeroCount() uint64             { return s.zeroCount }
func (s exponentialSnapshot) Positive() aggregation.Buckets { return s.positive }
func (s exponentialSnapshot) Negative() aggregation.Buckets { return s.negative }
