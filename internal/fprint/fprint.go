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

// Package fprint provides the stable 64-bit fingerprint primitives used
// to key an AttributeSet in the aggregator store.
package fprint

import (
	"math"

	// Our use of farmhash is sort of arbitrary: we want a fast
	// fingerprint function that doesn't allocate, and farmhash
	// is well-tested for this purpose.
	farm "github.com/dgryski/go-farm"
)

// Mix folds a sequence of fingerprints into one. It is order-dependent
// (each step mixes the accumulator so far with the next value), so
// callers that need a stable result regardless of how they discovered
// their inputs — attribute.Set's key-value fingerprint, for instance —
// must feed Mix its inputs in a canonical order themselves.
func Mix(is ...uint64) uint64 {
	if len(is) == 0 {
		return 0
	}
	accumulator := is[0]
	for _, i := range is[1:] {
		accumulator = mix(accumulator, i)
	}
	return accumulator
}

// mix is borrowed from farmhash's own internal mixing step.
func mix(x, y uint64) uint64 {
	const mul uint64 = 0x9ddfea08eb382d69
	a := (x ^ y) * mul
	a ^= a >> 47
	b := (y ^ a) * mul
	b ^= b >> 47
	b *= mul
	return b
}

func String(s string) uint64 {
	return farm.Fingerprint64([]byte(s))
}

func Bool(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func Int64(i int64) uint64 {
	return uint64(i)
}

func Float64(f float64) uint64 {
	return math.Float64bits(f)
}
