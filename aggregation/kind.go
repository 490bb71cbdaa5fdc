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

// Package aggregation defines the closed set of aggregator kinds and
// the temporality (cumulative vs. delta) a MetricPoint is snapshotted
// with.
package aggregation

// Kind identifies which AggregatorState variant a MetricPoint holds.
type Kind int8

const (
	UndefinedKind Kind = iota
	MonotonicSumKind
	NonMonotonicSumKind
	GaugeKind
	ExplicitHistogramKind
	ExponentialHistogramKind
)

func (k Kind) String() string {
	switch k {
	case MonotonicSumKind:
		return "MonotonicSum"
	case NonMonotonicSumKind:
		return "NonMonotonicSum"
	case GaugeKind:
		return "Gauge"
	case ExplicitHistogramKind:
		return "ExplicitHistogram"
	case ExponentialHistogramKind:
		return "ExponentialHistogram"
	default:
		return "Undefined"
	}
}

// IsMonotonicSum reports whether k is a sum kind that only accepts
// non-negative deltas.
func (k Kind) IsMonotonicSum() bool { return k == MonotonicSumKind }
