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

package trace_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/trace"
)

type recordingProcessor struct {
	mu      sync.Mutex
	started []*trace.Span
	ended   []export.SpanData
}

func (p *recordingProcessor) OnStart(s *trace.Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, s)
}

func (p *recordingProcessor) OnEnd(data export.SpanData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, data)
}

func (p *recordingProcessor) ForceFlush(time.Duration) bool { return true }
func (p *recordingProcessor) Shutdown(time.Duration) bool   { return true }

func TestAlwaysSampleEndsUpInProcessor(t *testing.T) {
	proc := &recordingProcessor{}
	tracer := trace.NewTracer("svc", "v1", trace.AlwaysSample(), proc)

	ctx, span := tracer.StartSpan(context.Background(), "op", trace.StartOption{})
	assert.True(t, span.IsRecording())
	span.SetAttribute(attribute.String("k", "v"))
	span.End()

	require.Len(t, proc.ended, 1)
	assert.Equal(t, "op", proc.ended[0].Name)
	_ = ctx
}

func TestNeverSampleNeverReachesProcessor(t *testing.T) {
	proc := &recordingProcessor{}
	tracer := trace.NewTracer("svc", "v1", trace.NeverSample(), proc)

	_, span := tracer.StartSpan(context.Background(), "op", trace.StartOption{})
	span.End()

	assert.Empty(t, proc.started)
	assert.Empty(t, proc.ended)
}

func TestEndIsIdempotent(t *testing.T) {
	proc := &recordingProcessor{}
	tracer := trace.NewTracer("svc", "v1", trace.AlwaysSample(), proc)

	_, span := tracer.StartSpan(context.Background(), "op", trace.StartOption{})
	span.End()
	span.End()

	assert.Len(t, proc.ended, 1)
}

func TestSetStatusErrorWinsOverOK(t *testing.T) {
	proc := &recordingProcessor{}
	tracer := trace.NewTracer("svc", "v1", trace.AlwaysSample(), proc)

	_, span := tracer.StartSpan(context.Background(), "op", trace.StartOption{})
	span.SetStatus(trace.StatusError, "boom")
	span.SetStatus(trace.StatusOK, "")
	span.End()

	require.Len(t, proc.ended, 1)
	assert.Equal(t, int32(trace.StatusError), proc.ended[0].StatusCode)
}

func TestParentBasedFollowsParentSampleFlag(t *testing.T) {
	sampler := trace.ParentBased(trace.NeverSample())
	proc := &recordingProcessor{}
	tracer := trace.NewTracer("svc", "v1", sampler, proc)

	rootTracer := trace.NewTracer("svc", "v1", trace.AlwaysSample(), proc)
	ctx, root := rootTracer.StartSpan(context.Background(), "root", trace.StartOption{})
	root.End()

	_, child := tracer.StartSpan(ctx, "child", trace.StartOption{})
	child.End()

	require.Len(t, proc.ended, 2)
}
