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

// Package aggregator defines the Kernel boundary every aggregation
// type (sum, last-value, explicit-bucket histogram, base-2
// exponential histogram) implements, plus the ExemplarOfferer
// interface for kernels that accept exemplar offers. It declares
// interfaces only; it holds no shared helper code.
package aggregator

import (
	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/number"
)

// Kernel is the update/snapshot contract a MetricPoint's running
// state implements. It is the per-aggregation-type "kernel" logic
// described in §4.3: stateless with respect to identity (a Kernel is
// created once per MetricPoint and carries its own running state).
type Kernel interface {
	Kind() aggregation.Kind

	// Update folds one measurement into the running state. It
	// never blocks for long (atomics for Sum/Gauge, a spinlock
	// for histograms) and never returns an error. A negative value
	// offered to a monotonic sum is rejected and counted by the
	// Store before Update is called.
	Update(v number.Number)

	// Snapshot copies the running state into an immutable
	// Aggregation. If reset is true, the running state is
	// atomically cleared back to zero as part of the same
	// operation (delta-native collection); if false, the running
	// state is left untouched (cumulative collection).
	Snapshot(reset bool) aggregation.Aggregation
}

// ExemplarOfferer is implemented by kernels that accept an exemplar
// reservoir offer after a successful Update.
type ExemplarOfferer interface {
	OfferExemplar(v number.Number, bucket int32, offer func(v number.Number, bucket int32))
}
