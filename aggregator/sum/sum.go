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

// Package sum implements the Sum aggregator kernel: running += value
// via an atomic add (integers) or a lock-free compare-exchange retry
// loop on the double's bit pattern (floats). No lock, per §4.3.
package sum

import (
	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/number"
)

// Kernel accumulates a running cumulative total. It never resets on
// its own: the MetricPoint decides, per collection, whether to hand
// the caller a straight copy (cumulative) or to additionally subtract
// the point's previous reading (delta), per §4.4.
type Kernel[N number.Any] struct {
	traits    number.Traits[N]
	monotonic bool
	value     N
}

func New[N number.Any](traits number.Traits[N], monotonic bool) *Kernel[N] {
	return &Kernel[N]{traits: traits, monotonic: monotonic}
}

func (k *Kernel[N]) Kind() aggregation.Kind {
	if k.monotonic {
		return aggregation.MonotonicSumKind
	}
	return aggregation.NonMonotonicSumKind
}

func (k *Kernel[N]) Update(v number.Number) {
	k.traits.AddAtomic(&k.value, k.traits.FromNumber(v))
}

// Snapshot returns the current total. reset additionally zeroes the
// running value as part of the same atomic operation; it exists for
// symmetry with the other kernels but ordinary Sum collection leaves
// reset false and lets the MetricPoint derive delta from two cumulative
// reads (§4.4).
func (k *Kernel[N]) Snapshot(reset bool) aggregation.Aggregation {
	var value N
	if reset {
		value = k.traits.SwapAtomic(&k.value, *new(N))
	} else {
		value = k.traits.GetAtomic(&k.value)
	}
	return snapshot{value: k.traits.ToNumber(value), monotonic: k.monotonic, kind: k.Kind()}
}

// Reset forces the running value back to zero. Nothing in this module
// calls it: the store removes reclaimed MetricPoints rather than
// reusing them.
func (k *Kernel[N]) Reset() {
	var zero N
	k.traits.SetAtomic(&k.value, zero)
}

type snapshot struct {
	value     number.Number
	monotonic bool
	kind      aggregation.Kind
}

var _ aggregation.Sum = snapshot{}

func (s snapshot) Kind() aggregation.Kind { return s.kind }
func (s snapshot) Value() number.Number   { return s.value }
func (s snapshot) IsMonotonic() bool      { return s.monotonic }
