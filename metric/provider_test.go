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

package metric_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/metric"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/store"
)

type fakeExporter struct {
	mu       sync.Mutex
	batches  []export.MetricBatch
}

func (f *fakeExporter) Export(_ context.Context, batches []export.MetricBatch, _ time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batches...)
	return true
}
func (f *fakeExporter) ForceFlush(time.Time) bool { return true }
func (f *fakeExporter) Shutdown(time.Time) bool   { return true }

func (f *fakeExporter) snapshot() []export.MetricBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]export.MetricBatch(nil), f.batches...)
}

func TestCounterAddRoutesToRegisteredReader(t *testing.T) {
	exp := &fakeExporter{}
	mp := metric.NewMeterProvider(logr.Discard(), nil)
	mp.AddReader(metric.ReaderConfig{Exporter: exp, Period: time.Hour, Temporality: aggregation.PreferCumulative})

	m := mp.Meter("test", "v1")
	counter := metric.CreateCounter[int64](m, "requests", number.Int64Traits{})
	counter.Add(context.Background(), 3, attribute.String("route", "/health"))
	counter.Add(context.Background(), 4, attribute.String("route", "/health"))

	require.NoError(t, mp.ForceFlush(time.Second))
	batches := exp.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Points, 1)
	sumAgg, ok := batches[0].Points[0].Aggregation.(aggregation.Sum)
	require.True(t, ok)
	assert.Equal(t, int64(7), sumAgg.Value().AsInt64())
}

func TestCreateCounterCarriesUnitAndDescription(t *testing.T) {
	exp := &fakeExporter{}
	mp := metric.NewMeterProvider(logr.Discard(), nil)
	mp.AddReader(metric.ReaderConfig{Exporter: exp, Period: time.Hour, Temporality: aggregation.PreferCumulative})

	m := mp.Meter("test", "v1")
	counter := metric.CreateCounter[int64](m, "requests", number.Int64Traits{},
		metric.WithUnit("{request}"), metric.WithDescription("number of requests handled"))
	counter.Add(context.Background(), 1)

	require.NoError(t, mp.ForceFlush(time.Second))
	batches := exp.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, "{request}", batches[0].Stream.Unit)
	assert.Equal(t, "number of requests handled", batches[0].Stream.Description)
}

func TestCounterFansOutToEveryReader(t *testing.T) {
	expA, expB := &fakeExporter{}, &fakeExporter{}
	mp := metric.NewMeterProvider(logr.Discard(), nil)
	mp.AddReader(metric.ReaderConfig{Exporter: expA, Period: time.Hour, Temporality: aggregation.PreferCumulative})
	mp.AddReader(metric.ReaderConfig{Exporter: expB, Period: time.Hour, Temporality: aggregation.PreferCumulative})

	m := mp.Meter("test", "v1")
	counter := metric.CreateCounter[int64](m, "requests", number.Int64Traits{})
	counter.Add(context.Background(), 1)

	require.NoError(t, mp.ForceFlush(time.Second))
	assert.Len(t, expA.snapshot(), 1)
	assert.Len(t, expB.snapshot(), 1)
}

func TestAsyncCounterObservesOnCollection(t *testing.T) {
	exp := &fakeExporter{}
	mp := metric.NewMeterProvider(logr.Discard(), nil)
	mp.AddReader(metric.ReaderConfig{Exporter: exp, Period: time.Hour, Temporality: aggregation.PreferCumulative})

	m := mp.Meter("test", "v1")
	var reported int64 = 42
	metric.CreateAsyncCounter[int64](m, "async_total", number.Int64Traits{}, func(ctx context.Context) []metric.Observation[int64] {
		return []metric.Observation[int64]{{Value: reported}}
	})

	require.NoError(t, mp.ForceFlush(time.Second))
	batches := exp.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Points, 1)
	sumAgg := batches[0].Points[0].Aggregation.(aggregation.Sum)
	assert.Equal(t, int64(42), sumAgg.Value().AsInt64())
}

func TestReclaimUnusedMetricPointsFreesIdleSeriesThroughPublicAPI(t *testing.T) {
	exp := &fakeExporter{}
	mp := metric.NewMeterProvider(logr.Discard(), nil)
	mp.AddReader(metric.ReaderConfig{
		Exporter:                  exp,
		Period:                    time.Hour,
		Temporality:               aggregation.PreferDelta,
		CardinalityLimit:          1,
		ReclaimUnusedMetricPoints: true,
	})

	m := mp.Meter("test", "v1")
	counter := metric.CreateCounter[int64](m, "requests", number.Int64Traits{})
	counter.Add(context.Background(), 1, attribute.String("route", "/a"))
	require.NoError(t, mp.ForceFlush(time.Second))

	// /a's point was collected above with no further update pending,
	// so the reclaim pass that followed should have freed it, leaving
	// room under the cardinality limit of 1 for a new attribute set.
	counter.Add(context.Background(), 1, attribute.String("route", "/b"))
	require.NoError(t, mp.ForceFlush(time.Second))

	batches := exp.snapshot()
	require.Len(t, batches, 2)
	require.Len(t, batches[1].Points, 1)
	_, overflowed := batches[1].Points[0].Attrs.Get(store.OverflowKey)
	assert.False(t, overflowed)
	v, ok := batches[1].Points[0].Attrs.Get("route")
	require.True(t, ok)
	assert.Equal(t, "/b", v.AsString())
}

func TestMeterProviderShutdownStopsCollection(t *testing.T) {
	exp := &fakeExporter{}
	mp := metric.NewMeterProvider(logr.Discard(), nil)
	mp.AddReader(metric.ReaderConfig{Exporter: exp, Period: time.Hour, Temporality: aggregation.PreferCumulative})
	mp.Start(context.Background())

	require.NoError(t, mp.Shutdown(time.Second))
	assert.Error(t, mp.Shutdown(time.Second))
}
