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

package metricpoint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/aggregator/gauge"
	"github.com/northfield-oss/telemetry-core/aggregator/histogram"
	"github.com/northfield-oss/telemetry-core/aggregator/sum"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/metricpoint"
	"github.com/northfield-oss/telemetry-core/number"
)

func TestCollectReturnsNilWhenNothingPending(t *testing.T) {
	p := metricpoint.New(attribute.Set{}, sum.New[int64](number.Int64Traits{}, true), nil, number.Int64Kind)

	assert.Nil(t, p.Collect(false, false))
}

func TestCollectForcedIgnoresPendingStatus(t *testing.T) {
	p := metricpoint.New(attribute.Set{}, sum.New[int64](number.Int64Traits{}, true), nil, number.Int64Kind)

	agg := p.Collect(false, true)
	require.NotNil(t, agg)
}

func TestCollectClearsPendingAfterOneCollection(t *testing.T) {
	p := metricpoint.New(attribute.Set{}, sum.New[int64](number.Int64Traits{}, true), nil, number.Int64Kind)

	p.Update(number.FromInt64(5), 1, nil)
	require.NotNil(t, p.Collect(false, false))
	assert.Nil(t, p.Collect(false, false))
}

func TestCollectDeltaSubtractsPreviousCumulativeForSum(t *testing.T) {
	p := metricpoint.New(attribute.Set{}, sum.New[int64](number.Int64Traits{}, true), nil, number.Int64Kind)

	p.Update(number.FromInt64(5), 1, nil)
	first := p.Collect(true, true).(aggregation.Sum)
	assert.Equal(t, int64(5), first.Value().AsInt64())

	p.Update(number.FromInt64(3), 1, nil)
	second := p.Collect(true, true).(aggregation.Sum)
	assert.Equal(t, int64(3), second.Value().AsInt64())
}

func TestCollectDeltaForGaugeReportsInstantaneousValue(t *testing.T) {
	p := metricpoint.New(attribute.Set{}, gauge.New[int64](number.Int64Traits{}), nil, number.Int64Kind)

	p.Update(number.FromInt64(9), 1, nil)
	agg := p.Collect(true, true).(aggregation.Gauge)
	assert.Equal(t, int64(9), agg.Value().AsInt64())
}

func TestCollectCumulativeHistogramMergesSuccessiveDeltasForward(t *testing.T) {
	k := histogram.NewExplicit[int64](number.Int64Traits{}, []float64{10, 20}, true)
	p := metricpoint.New(attribute.Set{}, k, nil, number.Int64Kind)

	p.Update(number.FromInt64(5), 1, nil)
	first := p.Collect(false, true).(aggregation.ExplicitHistogram)
	assert.Equal(t, uint64(1), first.Count())
	assert.Equal(t, int64(5), first.Sum().AsInt64())
	assert.Equal(t, []uint64{1, 0, 0}, first.BucketCounts())

	p.Update(number.FromInt64(15), 1, nil)
	second := p.Collect(false, true).(aggregation.ExplicitHistogram)
	assert.Equal(t, uint64(2), second.Count())
	assert.Equal(t, int64(20), second.Sum().AsInt64())
	assert.Equal(t, []uint64{1, 1, 0}, second.BucketCounts())
	assert.Equal(t, int64(5), second.Min().AsInt64())
	assert.Equal(t, int64(15), second.Max().AsInt64())
}

func TestCollectDeltaHistogramDoesNotAccumulate(t *testing.T) {
	k := histogram.NewExplicit[int64](number.Int64Traits{}, []float64{10, 20}, true)
	p := metricpoint.New(attribute.Set{}, k, nil, number.Int64Kind)

	p.Update(number.FromInt64(5), 1, nil)
	first := p.Collect(true, true).(aggregation.ExplicitHistogram)
	assert.Equal(t, uint64(1), first.Count())

	p.Update(number.FromInt64(15), 1, nil)
	second := p.Collect(true, true).(aggregation.ExplicitHistogram)
	assert.Equal(t, uint64(1), second.Count())
}

func TestStatus32TakePendingClearsAfterOneRead(t *testing.T) {
	var s metricpoint.Status32
	s.MarkPending()

	assert.True(t, s.TakePending())
	assert.False(t, s.TakePending())
}
