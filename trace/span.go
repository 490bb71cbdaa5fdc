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

package trace

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/export"
	"github.com/northfield-oss/telemetry-core/propagation"
)

type StatusCode int32

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

// SpanProcessor is the boundary a Span's lifecycle events cross on
// their way to an exporter (§4.5): OnStart fires synchronously when a
// recording span (RecordOnly or RecordAndSample) begins, OnEnd when a
// sampled span finishes.
type SpanProcessor interface {
	OnStart(s *Span)
	OnEnd(data export.SpanData)
	ForceFlush(timeout time.Duration) bool
	Shutdown(timeout time.Duration) bool
}

// Tracer creates spans for one instrumentation scope.
type Tracer struct {
	name, version string
	sampler       Sampler
	processor     SpanProcessor
}

func NewTracer(name, version string, sampler Sampler, processor SpanProcessor) *Tracer {
	return &Tracer{name: name, version: version, sampler: sampler, processor: processor}
}

type StartOption struct {
	Attributes []attribute.KeyValue
	NewRoot    bool
}

// StartSpan consults the sampler and returns a context carrying the
// new span plus the Span itself. A span whose sampler decision is
// Drop still returns a usable no-op-shaped Span (End is safe to call
// on it), it simply never reaches the processor.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts StartOption) (context.Context, *Span) {
	parent := propagation.SpanContextFromContext(ctx)
	if opts.NewRoot {
		parent = propagation.SpanContext{}
	}

	traceID := parent.TraceID
	if !parent.IsValid() {
		traceID = newTraceID()
	}
	spanID := newSpanID()

	result := t.sampler.ShouldSample(SamplingParameters{
		ParentContext: parent,
		TraceID:       traceID,
		Name:          name,
		Attributes:    opts.Attributes,
	})

	var flags byte
	if result.Decision == RecordAndSample {
		flags = 0x1
	}
	sc := propagation.SpanContext{TraceID: traceID, SpanID: spanID, TraceFlags: flags}

	attrs, _ := attribute.New(append(opts.Attributes, result.Attributes...)...)
	s := &Span{
		tracer:     t,
		sc:         sc,
		parentSpan: parent.SpanID,
		name:       name,
		recording:  result.Decision != Drop,
		sampled:    result.Decision == RecordAndSample,
		start:      time.Now(),
		attrs:      attrs,
	}
	if s.recording {
		t.processor.OnStart(s)
	}
	return propagation.ContextWithSpanContext(ctx, sc), s
}

func newTraceID() [16]byte {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return b
}

func newSpanID() [8]byte {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return b
}

// Span is a single operation's recorded timing, attributes, events,
// and status. All mutating methods are safe for concurrent use, since
// a span is commonly finished from a different goroutine than the one
// that started it (e.g. an async handler completing on a worker pool).
type Span struct {
	tracer *Tracer

	mu         sync.Mutex
	sc         propagation.SpanContext
	parentSpan [8]byte
	name       string
	recording  bool
	sampled    bool
	ended      bool

	start  time.Time
	end    time.Time
	attrs  attribute.Set
	status StatusCode
	statusMsg string
	events []export.EventData
	dropped int
}

const maxEventsPerSpan = 128

func (s *Span) SpanContext() propagation.SpanContext {
	return s.sc
}

func (s *Span) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording && !s.ended
}

func (s *Span) SetAttribute(kv attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording || s.ended {
		return
	}
	merged, err := attribute.New(append(s.attrs.ToSlice(), kv)...)
	if err == nil {
		s.attrs = merged
	}
}

func (s *Span) SetStatus(code StatusCode, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording || s.ended {
		return
	}
	// Error beats OK if both are set at different points in a
	// span's life, the way OpenTelemetry's status API specifies;
	// Unset never overwrites a prior decision.
	if code == StatusUnset {
		return
	}
	if s.status == StatusError && code == StatusOK {
		return
	}
	s.status = code
	s.statusMsg = msg
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording || s.ended {
		return
	}
	if len(s.events) >= maxEventsPerSpan {
		s.dropped++
		return
	}
	set, _ := attribute.New(attrs...)
	s.events = append(s.events, export.EventData{Name: name, Time: time.Now(), Attributes: set})
}

// End finalizes the span and, if it was sampled, hands an immutable
// snapshot to the tracer's processor. Calling End more than once is a
// no-op after the first call.
func (s *Span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.end = time.Now()
	data := export.SpanData{
		Name:         s.name,
		TraceID:      s.sc.TraceID,
		SpanID:       s.sc.SpanID,
		ParentSpanID: s.parentSpan,
		StartTime:    s.start,
		EndTime:      s.end,
		Attributes:   s.attrs,
		StatusCode:   int32(s.status),
		StatusMsg:    s.statusMsg,
		Events:       append([]export.EventData(nil), s.events...),
		Dropped:      s.dropped,
	}
	sampled := s.sampled
	s.mu.Unlock()

	if sampled {
		s.tracer.processor.OnEnd(data)
	}
}
