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

package aggregation

import "github.com/northfield-oss/telemetry-core/number"

// Aggregation is an immutable snapshot of one MetricPoint's state at
// collection time, as handed to the exporter.
type Aggregation interface {
	Kind() Kind
}

// Sum is the snapshot shape for monotonic and non-monotonic sums.
type Sum interface {
	Aggregation
	Value() number.Number
	IsMonotonic() bool
}

// Gauge is the snapshot shape for last-value aggregations.
type Gauge interface {
	Aggregation
	Value() number.Number
}

// Buckets describes one side (positive or negative) of a histogram's
// bucket counts, a contiguous run starting at Offset().
type Buckets interface {
	Offset() int32
	Len() uint32
	At(uint32) uint64
}

// Histogram is the snapshot shape shared by explicit-bucket and
// base-2 exponential histograms.
type Histogram interface {
	Aggregation
	Count() uint64
	Sum() number.Number
	HasMinMax() bool
	Min() number.Number
	Max() number.Number
}

// ExplicitHistogram additionally exposes the fixed boundaries and
// linear bucket counts configured for the view.
type ExplicitHistogram interface {
	Histogram
	Boundaries() []float64
	BucketCounts() []uint64
}

// ExponentialHistogram additionally exposes the scale and zero count
// that base-2 bucketing requires.
type ExponentialHistogram interface {
	Histogram
	Scale() int32
	ZeroCount() uint64
	Positive() Buckets
	Negative() Buckets
}
