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

// Package number defines the generic numeric value the SDK's
// aggregator kernels operate on: a single 64-bit union (Number) plus
// a Traits[N] interface supplying atomic operations and conversions
// per concrete Go numeric type.
package number

import "math"

// Kind identifies which machine representation a Number holds.
type Kind int8

const (
	Int64Kind Kind = iota
	Float64Kind
)

// Any is the set of concrete number types the SDK's generic kernels
// can be instantiated over.
type Any interface {
	int64 | float64
}

// Number is a generic 64-bit container: int64 values are stored
// directly, float64 values via their IEEE-754 bit pattern. Kernels
// convert to/from the concrete type via Traits.
type Number uint64

func (n Number) AsInt64() int64     { return int64(n) }
func (n Number) AsFloat64() float64 { return math.Float64frombits(uint64(n)) }

func FromInt64(i int64) Number     { return Number(i) }
func FromFloat64(f float64) Number { return Number(math.Float64bits(f)) }
