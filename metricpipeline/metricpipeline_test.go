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

package metricpipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield-oss/telemetry-core/aggregation"
	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/instrumentstream"
	"github.com/northfield-oss/telemetry-core/metricpipeline"
	"github.com/northfield-oss/telemetry-core/number"
	"github.com/northfield-oss/telemetry-core/view"
)

type fakeMetricExporter struct {
	mu        sync.Mutex
	exported  []export.MetricBatch
	shutdown  bool
	forceFlushCalled bool
}

func (f *fakeMetricExporter) Export(_ context.Context, batches []export.MetricBatch, _ time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exported = append(f.exported, batches...)
	return true
}

func (f *fakeMetricExporter) ForceFlush(time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forceFlushCalled = true
	return true
}

func (f *fakeMetricExporter) Shutdown(time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return true
}

func (f *fakeMetricExporter) snapshot() []export.MetricBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]export.MetricBatch(nil), f.exported...)
}

func newTestStream(name string, kind aggregation.InstrumentKind) *instrumentstream.Stream {
	return newTestStreamWithReclaim(name, kind, false)
}

func newTestStreamWithReclaim(name string, kind aggregation.InstrumentKind, reclaim bool) *instrumentstream.Stream {
	id := instrumentstream.Identity{Name: name, Kind: kind, NumberKind: number.Int64Kind}
	cfg := view.Config{Name: name, AggregationKind: aggregation.MonotonicSumKind, RecordMinMax: true}
	return instrumentstream.New(id, cfg, 100, true, reclaim, false, 0)
}

func TestForceFlushExportsRegisteredStreams(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, time.Hour, aggregation.PreferCumulative)

	s := newTestStream("requests", aggregation.SyncCounter)
	attrs := attribute.NewMust(attribute.String("route", "/"))
	s.Store.Update(attrs, number.FromInt64(1), 1, nil)
	p.Register(s)

	require.NoError(t, p.ForceFlush(time.Second))
	batches := exp.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, "requests", batches[0].Stream.Name)
	assert.True(t, exp.forceFlushCalled)
}

func TestPreCollectHookRunsBeforeEachCollection(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, time.Hour, aggregation.PreferCumulative)

	s := newTestStream("observed", aggregation.AsyncCounter)
	p.Register(s)

	var calls int
	p.AddPreCollectHook(func(ctx context.Context) {
		calls++
		attrs := attribute.NewMust(attribute.String("k", "v"))
		s.Store.Update(attrs, number.FromInt64(int64(calls)), 1, nil)
	})

	require.NoError(t, p.ForceFlush(time.Second))
	assert.Equal(t, 1, calls)

	require.NoError(t, p.ForceFlush(time.Second))
	assert.Equal(t, 2, calls)
}

func TestShutdownIsIdempotentAndReturnsErrOnSecondCall(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, time.Hour, aggregation.PreferCumulative)
	p.Start(context.Background())

	require.NoError(t, p.Shutdown(time.Second))
	assert.True(t, exp.shutdown)

	err := p.Shutdown(time.Second)
	assert.Error(t, err)
}

func TestForceFlushReclaimsIdlePointsUnderDeltaTemporalityWhenEnabled(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, time.Hour, aggregation.PreferDelta)

	s := newTestStreamWithReclaim("requests", aggregation.SyncCounter, true)
	attrs := attribute.NewMust(attribute.String("route", "/a"))
	s.Store.Update(attrs, number.FromInt64(1), 1, nil)
	p.Register(s)

	require.NoError(t, p.ForceFlush(time.Second))
	assert.Equal(t, 0, s.Store.Len())
}

func TestForceFlushLeavesPointsMappedWhenReclaimDisabled(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, time.Hour, aggregation.PreferDelta)

	s := newTestStream("requests", aggregation.SyncCounter)
	attrs := attribute.NewMust(attribute.String("route", "/a"))
	s.Store.Update(attrs, number.FromInt64(1), 1, nil)
	p.Register(s)

	require.NoError(t, p.ForceFlush(time.Second))
	assert.Equal(t, 1, s.Store.Len())
}

func TestForceFlushDoesNotReclaimUnderCumulativeTemporalityEvenWhenEnabled(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, time.Hour, aggregation.PreferCumulative)

	s := newTestStreamWithReclaim("requests", aggregation.SyncCounter, true)
	attrs := attribute.NewMust(attribute.String("route", "/a"))
	s.Store.Update(attrs, number.FromInt64(1), 1, nil)
	p.Register(s)

	require.NoError(t, p.ForceFlush(time.Second))
	assert.Equal(t, 1, s.Store.Len())
}

func TestStartRunsPeriodicCollection(t *testing.T) {
	exp := &fakeMetricExporter{}
	p := metricpipeline.New(exp, 10*time.Millisecond, aggregation.PreferCumulative)

	s := newTestStream("periodic", aggregation.SyncCounter)
	attrs := attribute.NewMust(attribute.String("route", "/"))
	s.Store.Update(attrs, number.FromInt64(1), 1, nil)
	p.Register(s)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		return len(exp.snapshot()) > 0
	}, time.Second, 5*time.Millisecond)
}
