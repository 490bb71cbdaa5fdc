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

package sdk_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield-oss/telemetry-core/batchprocessor"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/sdk"
	"github.com/northfield-oss/telemetry-core/trace"
)

type fakeSpanExporter struct {
	mu       sync.Mutex
	spans    []export.SpanData
	flushOK  bool
	shutdown bool
}

func (f *fakeSpanExporter) Export(_ context.Context, batch export.Batch[export.SpanData], _ time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spans = append(f.spans, batch.Items...)
	return true
}

func (f *fakeSpanExporter) ForceFlush(time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flushOK {
		return true
	}
	return !f.shutdown
}

func (f *fakeSpanExporter) Shutdown(time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return true
}

func (f *fakeSpanExporter) snapshot() []export.SpanData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]export.SpanData(nil), f.spans...)
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, export.Batch[export.SpanData], time.Time) bool {
	return true
}
func (failingExporter) ForceFlush(time.Time) bool { return false }
func (failingExporter) Shutdown(time.Time) bool   { return false }

func TestNewTracerRoutesSpanThroughBatchProcessor(t *testing.T) {
	exp := &fakeSpanExporter{flushOK: true}
	s := sdk.New()
	tracer := s.NewTracer("svc", "v1", trace.AlwaysSample(), exp, batchprocessor.Config[export.SpanData]{
		ScheduledDelay: time.Hour,
	})

	ctx, span := tracer.StartSpan(context.Background(), "op", trace.StartOption{})
	span.End()
	_ = ctx

	require.NoError(t, s.Shutdown(time.Second))
	assert.Len(t, exp.snapshot(), 1)
}

func TestShutdownAggregatesFailuresAcrossComponents(t *testing.T) {
	s := sdk.New()
	s.NewTracer("a", "v1", trace.AlwaysSample(), failingExporter{}, batchprocessor.Config[export.SpanData]{
		ScheduledDelay: time.Hour,
	})
	s.NewTracer("b", "v1", trace.AlwaysSample(), failingExporter{}, batchprocessor.Config[export.SpanData]{
		ScheduledDelay: time.Hour,
	})

	err := s.Shutdown(time.Second)
	assert.Error(t, err)
}

func TestRegisterHandleFoldsIntoShutdown(t *testing.T) {
	s := sdk.New()
	var flushed, shut bool
	h := sdk.NewHandle("meter",
		func(time.Duration) error { flushed = true; return nil },
		func(time.Duration) error { shut = true; return nil },
	)
	s.RegisterHandle("meter", h)

	require.NoError(t, s.Shutdown(time.Second))
	assert.True(t, flushed)
	assert.True(t, shut)
}

func TestPropagatorDefaultsToEmptyComposite(t *testing.T) {
	s := sdk.New()
	assert.NotNil(t, s.Propagator())
}
