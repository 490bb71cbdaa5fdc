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

// Package exemplar implements the two exemplar reservoir shapes a
// MetricPoint may carry alongside its aggregation: Fixed, a
// single-slot last-value reservoir for sums and gauges, and Weighted,
// a bounded-size reservoir sampler for histograms, where every bucket
// deserves a chance at being represented.
package exemplar

import (
	"sync"
	"time"

	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/number"
)

// Exemplar is one retained raw measurement, tagged with the
// measurement's full attribute set (before any view key filter) plus
// the trace context active when it was recorded, if any.
type Exemplar struct {
	Value      number.Number
	Attributes attribute.Set
	Time       time.Time
	TraceID    [16]byte
	SpanID     [8]byte
	HasContext bool
}

// Reservoir is the boundary a MetricPoint's optional exemplar storage
// implements. Offer must never block the recording path for long and
// must never let measurement data corrupt the aggregation it rides
// alongside; a panicking Reservoir is the caller's responsibility to
// isolate, not the reservoir's.
type Reservoir interface {
	Offer(ex Exemplar, weight float64)
	Collect() []Exemplar
	Reset()
}

// Fixed retains only the most recently offered exemplar. It is the
// right choice for Sum and Gauge points, where there is one value per
// collection and no bucket structure to spread samples across.
type Fixed struct {
	mu    sync.Mutex
	has   bool
	value Exemplar
}

func NewFixed() *Fixed {
	return &Fixed{}
}

func (f *Fixed) Offer(ex Exemplar, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = ex
	f.has = true
}

func (f *Fixed) Collect() []Exemplar {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.has {
		return nil
	}
	return []Exemplar{f.value}
}

func (f *Fixed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.has = false
	f.value = Exemplar{}
}
