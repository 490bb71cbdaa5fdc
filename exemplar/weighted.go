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

package exemplar

import (
	"math/rand"
	"sync"

	"github.com/lightstep/varopt"
)

// Weighted is a bounded-size weighted reservoir sampler backed by
// varopt (A-ExpJ), so that high-weight exemplars (e.g. the rare
// slow request in a histogram otherwise full of fast ones) are
// over-represented relative to naive uniform sampling without being
// guaranteed a slot outright.
type Weighted struct {
	mu      sync.Mutex
	samples *varopt.Varopt
}

// NewWeighted constructs a reservoir that retains at most capacity
// exemplars. rng is the randomness source varopt's algorithm needs
// for its weighted coin flips; callers that need deterministic tests
// pass a seeded *rand.Rand.
func NewWeighted(capacity int, rng *rand.Rand) *Weighted {
	return &Weighted{samples: varopt.New(capacity, rng)}
}

func (w *Weighted) Offer(ex Exemplar, weight float64) {
	if weight <= 0 {
		weight = 1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples.Add(ex, weight)
}

func (w *Weighted) Collect() []Exemplar {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.samples.Size()
	out := make([]Exemplar, 0, n)
	for i := 0; i < n; i++ {
		item, _ := w.samples.Get(i)
		if ex, ok := item.(Exemplar); ok {
			out = append(out, ex)
		}
	}
	return out
}

func (w *Weighted) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples.Reset()
}
