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

package store_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/aggregator"
	"github.com/northfield-oss/telemetry-core/aggregator/sum"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/store"
)

func monotonicSumKernel() aggregator.Kernel {
	return sum.New[int64](number.Int64Traits{}, true)
}

func newTestStore(t *testing.T, cardinalityLimit int, emitOverflow bool) *store.Store {
	t.Helper()
	return store.New(number.Int64Kind, cardinalityLimit, emitOverflow, false, monotonicSumKernel, nil)
}

func newReclaimingTestStore(t *testing.T, cardinalityLimit int, emitOverflow bool) *store.Store {
	t.Helper()
	return store.New(number.Int64Kind, cardinalityLimit, emitOverflow, true, monotonicSumKernel, nil)
}

func TestStoreUpdateAndCollect(t *testing.T) {
	s := newTestStore(t, 10, true)

	attrs := attribute.NewMust(attribute.String("route", "/health"))
	s.Update(attrs, number.FromInt64(5), 1, nil)
	s.Update(attrs, number.FromInt64(3), 1, nil)

	points := s.Collect(false, false)
	require.Len(t, points, 1)
	sumAgg, ok := points[0].Aggregation.(aggregation.Sum)
	require.True(t, ok)
	assert.Equal(t, int64(8), sumAgg.Value().AsInt64())
}

func TestStoreRejectsNegativeIntoMonotonicSum(t *testing.T) {
	s := newTestStore(t, 10, true)

	attrs := attribute.NewMust(attribute.String("route", "/health"))
	s.Update(attrs, number.FromInt64(5), 1, nil)
	s.Update(attrs, number.FromInt64(-1), 1, nil)

	assert.Equal(t, uint64(1), s.Rejected())
	points := s.Collect(false, true)
	require.Len(t, points, 1)
	sumAgg := points[0].Aggregation.(aggregation.Sum)
	assert.Equal(t, int64(5), sumAgg.Value().AsInt64())
}

func TestStoreOverflowRoutesToSharedPoint(t *testing.T) {
	s := newTestStore(t, 3, true)

	for i := 0; i < 10; i++ {
		attrs := attribute.NewMust(attribute.Int("i", i))
		s.Update(attrs, number.FromInt64(1), 1, nil)
	}

	assert.Greater(t, s.OverflowCount(), uint64(0))
	points := s.Collect(false, true)
	var sawOverflow bool
	for _, p := range points {
		if v, ok := p.Attrs.Get(store.OverflowKey); ok && v.AsBool() {
			sawOverflow = true
		}
	}
	assert.True(t, sawOverflow)
}

func TestStoreDropsSilentlyWhenOverflowDisabled(t *testing.T) {
	s := newTestStore(t, 3, false)

	for i := 0; i < 10; i++ {
		attrs := attribute.NewMust(attribute.Int("i", i))
		s.Update(attrs, number.FromInt64(1), 1, nil)
	}

	assert.Equal(t, uint64(0), s.OverflowCount())
	assert.Greater(t, s.Dropped(), uint64(0))
	for _, p := range s.Collect(false, true) {
		_, ok := p.Attrs.Get(store.OverflowKey)
		assert.False(t, ok)
	}
}

func TestStoreLenTracksDistinctAttributeSets(t *testing.T) {
	s := newTestStore(t, 100, true)

	for i := 0; i < 5; i++ {
		attrs := attribute.NewMust(attribute.String("k", fmt.Sprintf("v%d", i)))
		s.Update(attrs, number.FromInt64(1), 1, nil)
	}
	assert.Equal(t, 5, s.Len())
}

func TestStoreAdmitsCardinalityLimitDistinctSeriesBeforeOverflowing(t *testing.T) {
	s := newTestStore(t, 2, true)

	a := attribute.NewMust(attribute.Int("i", 0))
	b := attribute.NewMust(attribute.Int("i", 1))
	c := attribute.NewMust(attribute.Int("i", 2))

	s.Update(a, number.FromInt64(1), 1, nil)
	s.Update(b, number.FromInt64(1), 1, nil)
	assert.Equal(t, uint64(0), s.OverflowCount())
	assert.Equal(t, 2, s.Len())

	s.Update(c, number.FromInt64(1), 1, nil)
	assert.Equal(t, uint64(1), s.OverflowCount())

	points := s.Collect(false, true)
	nonOverflow := 0
	for _, p := range points {
		if v, ok := p.Attrs.Get(store.OverflowKey); !ok || !v.AsBool() {
			nonOverflow++
		}
	}
	assert.Equal(t, 2, nonOverflow)
}

// TestStoreReclaimFreesIdleSeriesSoANewAttributeSetDoesNotOverflow
// covers invariant 6 ("reclamation liveness") and its S6 scenario: at
// cardinalityLimit=1, a series left idle across a collection (delta
// temporality — every point's pending flag is cleared every
// collection) must be reclaimed, so a brand-new attribute set recorded
// afterward gets its own point instead of overflowing.
func TestStoreReclaimFreesIdleSeriesSoANewAttributeSetDoesNotOverflow(t *testing.T) {
	s := newReclaimingTestStore(t, 1, true)

	a := attribute.NewMust(attribute.Int("i", 0))
	s.Update(a, number.FromInt64(1), 1, nil)
	assert.Equal(t, 1, s.Len())

	// Two delta collections with no intervening update leave a's point
	// at NoCollectPending and zero references.
	s.Collect(true, false)
	s.Collect(true, false)

	reclaimed := s.Reclaim()
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, 0, s.Len())

	b := attribute.NewMust(attribute.Int("i", 1))
	s.Update(b, number.FromInt64(1), 1, nil)
	assert.Equal(t, uint64(0), s.OverflowCount())
	assert.Equal(t, 1, s.Len())
}

func TestStoreReclaimLeavesPointWithUncollectedUpdateMapped(t *testing.T) {
	s := newReclaimingTestStore(t, 10, true)

	a := attribute.NewMust(attribute.Int("i", 0))
	s.Update(a, number.FromInt64(1), 1, nil)

	// No Collect between the Update and the Reclaim: the point is
	// still CollectPending, so it must survive even at zero refs.
	reclaimed := s.Reclaim()
	assert.Equal(t, 0, reclaimed)
	assert.Equal(t, 1, s.Len())
}
