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

// Package gauge implements the last-value aggregator kernel: each
// Update overwrites the running value, no accumulation. Concurrent
// updates race by design; whichever write lands last at collection
// time wins, per §4.3.
package gauge

import (
	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/number"
)

type Kernel[N number.Any] struct {
	traits number.Traits[N]
	value  N
}

func New[N number.Any](traits number.Traits[N]) *Kernel[N] {
	return &Kernel[N]{traits: traits}
}

func (k *Kernel[N]) Kind() aggregation.Kind { return aggregation.GaugeKind }

func (k *Kernel[N]) Update(v number.Number) {
	k.traits.SetAtomic(&k.value, k.traits.FromNumber(v))
}

// Snapshot returns the last-written value. Gauges are never
// delta-converted (they carry no accumulation to subtract), so reset
// only clears the running value back to zero without affecting the
// value reported for this collection.
func (k *Kernel[N]) Snapshot(reset bool) aggregation.Aggregation {
	value := k.traits.GetAtomic(&k.value)
	if reset {
		k.traits.SetAtomic(&k.value, *new(N))
	}
	return snapshot{value: k.traits.ToNumber(value)}
}

type snapshot struct {
	value number.Number
}

var _ aggregation.Gauge = snapshot{}

func (s snapshot) Kind() aggregation.Kind { return aggregation.GaugeKind }
func (s snapshot) Value() number.Number   { return s.value }
