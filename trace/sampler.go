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

// Package trace implements the synchronous span recording path:
// Tracer.StartSpan consults a Sampler, a live Span accumulates
// attributes/events/status until End() hands it to the configured
// SpanProcessor chain, per §4.1/§4.5.
package trace

import (
	"encoding/binary"
	"math"

	"github.com/northfield-oss/telemetry-core/attribute"
	"github.com/northfield-oss/telemetry-core/propagation"
)

// Decision is a Sampler's verdict for a span about to start.
type Decision int

const (
	Drop Decision = iota
	RecordOnly
	RecordAndSample
)

type SamplingParameters struct {
	ParentContext propagation.SpanContext
	TraceID       [16]byte
	Name          string
	Attributes    []attribute.KeyValue
}

type SamplingResult struct {
	Decision   Decision
	Attributes []attribute.KeyValue
}

// Sampler decides whether a span about to start should be recorded,
// sampled (exported), or dropped outright.
type Sampler interface {
	ShouldSample(params SamplingParameters) SamplingResult
	Description() string
}

type alwaysSample struct{}

func AlwaysSample() Sampler { return alwaysSample{} }

func (alwaysSample) ShouldSample(SamplingParameters) SamplingResult {
	return SamplingResult{Decision: RecordAndSample}
}
func (alwaysSample) Description() string { return "AlwaysSample" }

type neverSample struct{}

func NeverSample() Sampler { return neverSample{} }

func (neverSample) ShouldSample(SamplingParameters) SamplingResult {
	return SamplingResult{Decision: Drop}
}
func (neverSample) Description() string { return "NeverSample" }

// TraceIDRatioBased samples a deterministic fraction of traces,
// keyed by trace ID so every span within one trace gets the same
// decision regardless of which service observes it first.
type traceIDRatio struct {
	upperBound uint64
	ratio      float64
}

func TraceIDRatioBased(ratio float64) Sampler {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &traceIDRatio{ratio: ratio, upperBound: uint64(ratio * math.MaxUint64)}
}

func (t *traceIDRatio) ShouldSample(p SamplingParameters) SamplingResult {
	x := binary.BigEndian.Uint64(p.TraceID[8:16]) >> 1
	if x < t.upperBound>>1 {
		return SamplingResult{Decision: RecordAndSample}
	}
	return SamplingResult{Decision: Drop}
}

func (t *traceIDRatio) Description() string { return "TraceIDRatioBased" }

// ParentBased defers to the parent span's sampling decision when
// there is a valid parent, and to root otherwise.
type parentBased struct {
	root Sampler
}

func ParentBased(root Sampler) Sampler {
	return &parentBased{root: root}
}

func (p *parentBased) ShouldSample(params SamplingParameters) SamplingResult {
	if !params.ParentContext.IsValid() {
		return p.root.ShouldSample(params)
	}
	if params.ParentContext.TraceFlags&0x1 != 0 {
		return SamplingResult{Decision: RecordAndSample}
	}
	return SamplingResult{Decision: Drop}
}

func (p *parentBased) Description() string { return "ParentBased{" + p.root.Description() + "}" }
